//go:build js && wasm
// +build js,wasm

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/photogallery/internal/layout"
	"github.com/MeKo-Tech/photogallery/internal/watermark"
)

var compositor *watermark.Compositor

// watermarkFilename returns the download name for a watermarked copy.
// Arguments: src, owner.
func watermarkFilename(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return map[string]interface{}{"error": "missing arguments"}
	}
	return watermark.Filename(args[0].String(), args[1].String())
}

// watermarkImage composites the owner label onto encoded image bytes that the
// page already fetched with CORS. Arguments: Uint8Array, src, owner.
func watermarkImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return map[string]interface{}{"error": "missing arguments"}
	}
	if compositor == nil {
		return map[string]interface{}{"error": "module not initialized"}
	}

	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])

	res, err := compositor.CompositeFrom(bytes.NewReader(data), args[1].String(), args[2].String())
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	out := js.Global().Get("Uint8Array").New(len(res.Data))
	js.CopyBytesToJS(out, res.Data)
	return map[string]interface{}{
		"data":     out,
		"filename": res.Filename,
		"width":    res.Width,
		"height":   res.Height,
	}
}

type measuredRect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// visualOrder ranks tiles from a JSON array of bounding rects (null for tiles
// that are not rendered) and returns their reveal delays in milliseconds,
// indexed by tile.
func visualOrder(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return map[string]interface{}{"error": "missing arguments"}
	}
	var rects []*measuredRect
	if err := json.Unmarshal([]byte(args[0].String()), &rects); err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("failed to parse rects: %v", err)}
	}

	order := layout.VisualOrder(len(rects), layout.ProbeFunc(func(i int) (layout.Rect, bool) {
		r := rects[i]
		if r == nil {
			return layout.Rect{}, false
		}
		return layout.Rect{Top: r.Top, Left: r.Left, Width: r.Width, Height: r.Height}, true
	}))

	ranks := make([]interface{}, len(order))
	delays := make([]interface{}, len(order))
	for i, rank := range order {
		ranks[i] = rank
		delays[i] = layout.RevealDelay(rank).Milliseconds()
	}
	return map[string]interface{}{
		"order":  ranks,
		"delays": delays,
	}
}

func initGallery(this js.Value, args []js.Value) interface{} {
	c, err := watermark.New(nil, watermark.DefaultOptions(), nil)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	compositor = c
	fmt.Println("Photogallery WASM module initialized")
	return map[string]interface{}{"status": "ready"}
}

func main() {
	c := make(chan struct{})

	js.Global().Set("galleryWatermarkFilename", js.FuncOf(watermarkFilename))
	js.Global().Set("galleryWatermark", js.FuncOf(watermarkImage))
	js.Global().Set("galleryVisualOrder", js.FuncOf(visualOrder))
	js.Global().Set("galleryInit", js.FuncOf(initGallery))

	fmt.Println("Photogallery WASM module loaded")
	<-c
}
