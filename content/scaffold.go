package content

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type scaffold struct {
	Title      string    `toml:"title"`
	Date       time.Time `toml:"date"`
	Slug       string    `toml:"slug"`
	Categories []string  `toml:"categories"`
	Draft      bool      `toml:"draft"`
}

// Scaffold returns the initial contents of a new draft called name: TOML
// front matter with a title derived from the file name, the given date and
// draft set, followed by an empty body.
func Scaffold(name string, now time.Time) ([]byte, error) {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	slug := Slugify(base)
	if slug == "" {
		return nil, fmt.Errorf("cannot derive a slug from %q", name)
	}
	fm, err := toml.Marshal(scaffold{
		Title:      titleFromSlug(base),
		Date:       now.Truncate(time.Second),
		Slug:       slug,
		Categories: []string{},
		Draft:      true,
	})
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString("+++\n")
	b.Write(fm)
	b.WriteString("+++\n\n")
	return b.Bytes(), nil
}
