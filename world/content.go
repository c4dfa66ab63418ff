package world

import (
	"embed"
	"io/fs"
)

//go:embed content/maps
var embeddedMaps embed.FS

//go:embed content/lephon
var embeddedLephon embed.FS

// DefaultContent returns the compiled-in map/lephon content roots. A
// deployment that wants hot-reloadable content can instead construct a
// MapCatalog over os.DirFS pointed at an external directory with the same
// layout — MapCatalog only ever asks its fs.FS for ReadDir/ReadFile.
func DefaultContent() (maps fs.FS, lephon fs.FS, err error) {
	maps, err = fs.Sub(embeddedMaps, "content/maps")
	if err != nil {
		return nil, nil, err
	}
	lephon, err = fs.Sub(embeddedLephon, "content/lephon")
	if err != nil {
		return nil, nil, err
	}
	return maps, lephon, nil
}
