// Package mapposter renders geographic map posters.
//
// # Quick Start
//
// Create a style pool over a map engine, a renderer over the pool, render,
// and close when done:
//
//	pool := mapposter.NewStylePool(&engine.CommandEngine{}, "styles")
//	r, err := mapposter.NewRenderer(pool,
//	    mapposter.WithFonts(lib),
//	    mapposter.WithOverlay(browser.New(browser.Options{})),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	res, err := r.Render(ctx, mapposter.RenderRequest{
//	    MapStyle:      "bw",
//	    PosterStyle:   "classic",
//	    Size:          "50x70cm",
//	    Bounds:        helsinki,
//	    LabelsEnabled: true,
//	    LabelHeader:   "Helsinki",
//	})
//
// # Pipeline
//
// Every request goes through the same stages:
//
//  1. Load the template for (poster style, size, orientation), preferring
//     the server variant
//  2. Resolve pixel dimensions from the declared size and resize constraint
//  3. Inject labels with font fallback, or pad the map when labels are off
//  4. Acquire the map raster with the selected Strategy
//  5. Rasterize the overlay, check both sizes and composite
//  6. Encode (png, jpeg, tiff, gif), layer vectors (svg) or print (pdf)
//  7. Remove the request's temp artifacts
//
// # Strategies
//
// Direct renders once with a fresh engine map at the final size; it serves
// full-size and vector output. Pooled reuses the style's map from the
// StylePool, one render at a time per style. Mosaic stitches pre-rendered
// tiles for thumbnails below the small threshold.
//
// # Errors
//
// Failures wrap the sentinel errors in errors.go; match them with
// errors.Is. ErrLockTimeout only fails the waiting request.
package mapposter
