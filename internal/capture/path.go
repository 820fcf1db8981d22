package capture

import (
	"fmt"
	"path"
	"time"

	"github.com/apc-golf/refhub/internal/refs"
)

// ImagePath builds the relative output path for one captured screenshot:
// <brand-slug>/<season-slug>/<item-slug>/<YYYYMMDD_HHMMSS>_<NNN>.jpg.
// seq is one-based and keeps parallel captures in one batch distinct.
func ImagePath(brand, season, item string, at time.Time, seq int) string {
	name := fmt.Sprintf("%s_%03d.jpg", at.Format("20060102_150405"), seq)
	return path.Join(refs.Slug(brand), refs.Slug(season), refs.Slug(item), name)
}

// UploadPath builds the relative output path for a manually uploaded file:
// <brand-slug>/<season-slug>/<item-slug>/raw/<filename>.
func UploadPath(brand, season, item, filename string) string {
	return path.Join(refs.Slug(brand), refs.Slug(season), refs.Slug(item), "raw", filename)
}
