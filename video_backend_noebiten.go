//go:build headless

package main

func init() {
	compiledFeatures = append(compiledFeatures, "video:headless")
}

// NewEbitenOutput falls back to the headless output in headless builds.
func NewEbitenOutput() (VideoOutput, error) {
	return NewHeadlessVideoOutput(), nil
}
