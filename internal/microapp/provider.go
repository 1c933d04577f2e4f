// Package microapp imports microapp packages into storage and renders their
// screens against runtime data.
package microapp

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pitabwire/sdui/internal/parser"
)

// Logical file names inside a microapp package.
const (
	FileMicroapp = "microapp.xml"
	FileStyles   = "resources/allStyles.xml"
	FileQueries  = "queries/allQueries.xml"
	FileEvents   = "events/allEvents.xml"
	FileWidgets  = "resources/allWidgets.xml"
	FileLayouts  = "resources/allLayouts.xml"
	DirScreens   = "screens"
)

// ErrNoScreens is returned by ReadScreens when the package has no screen documents.
var ErrNoScreens = errors.New("microapp: no screen documents")

// FileProvider reads the logical files of one microapp package. The plain
// Read methods fail when a file is missing; the OrEmpty variants return the
// zero value instead. Events, widgets and layouts are always optional.
type FileProvider interface {
	ReadMicroapp() (string, error)
	ReadStyles() (string, error)
	ReadQueries() (string, error)
	ReadScreens() ([]parser.Document, error)

	ReadMicroappOrEmpty() string
	ReadStylesOrEmpty() string
	ReadQueriesOrEmpty() string
	ReadScreensOrEmpty() []parser.Document

	ReadEvents() string
	ReadWidgets() string
	ReadLayouts() string
}

// files is the raw access a provider is built on.
type files interface {
	read(name string) (string, error)
	// screenNames lists the .xml documents under DirScreens, sorted.
	screenNames() []string
}

type provider struct {
	files files
}

func (p provider) ReadMicroapp() (string, error) { return p.files.read(FileMicroapp) }
func (p provider) ReadStyles() (string, error)   { return p.files.read(FileStyles) }
func (p provider) ReadQueries() (string, error)  { return p.files.read(FileQueries) }

func (p provider) ReadScreens() ([]parser.Document, error) {
	names := p.files.screenNames()
	if len(names) == 0 {
		return nil, ErrNoScreens
	}
	docs := make([]parser.Document, 0, len(names))
	for _, name := range names {
		text, err := p.files.read(name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, parser.Document{Name: name, Text: text})
	}
	return docs, nil
}

func (p provider) ReadMicroappOrEmpty() string { return p.orEmpty(FileMicroapp) }
func (p provider) ReadStylesOrEmpty() string   { return p.orEmpty(FileStyles) }
func (p provider) ReadQueriesOrEmpty() string  { return p.orEmpty(FileQueries) }

func (p provider) ReadScreensOrEmpty() []parser.Document {
	docs, err := p.ReadScreens()
	if err != nil {
		return nil
	}
	return docs
}

func (p provider) ReadEvents() string  { return p.orEmpty(FileEvents) }
func (p provider) ReadWidgets() string { return p.orEmpty(FileWidgets) }
func (p provider) ReadLayouts() string { return p.orEmpty(FileLayouts) }

func (p provider) orEmpty(name string) string {
	text, err := p.files.read(name)
	if err != nil {
		return ""
	}
	return text
}

// FSProvider reads a package from any fs.FS rooted at the package directory.
type FSProvider struct {
	provider
}

// NewFSProvider returns a provider over fsys.
func NewFSProvider(fsys fs.FS) *FSProvider {
	return &FSProvider{provider{files: fsFiles{fsys: fsys}}}
}

// NewDirProvider returns a provider over a package directory on disk.
func NewDirProvider(dir string) *FSProvider {
	return NewFSProvider(os.DirFS(dir))
}

type fsFiles struct {
	fsys fs.FS
}

func (f fsFiles) read(name string) (string, error) {
	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		return "", fmt.Errorf("microapp: reading %s: %w", name, err)
	}
	return string(data), nil
}

func (f fsFiles) screenNames() []string {
	matches, err := fs.Glob(f.fsys, DirScreens+"/*.xml")
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

// MapProvider serves a package held in memory, keyed by logical file name.
// It backs the HTTP import endpoint.
type MapProvider struct {
	provider
}

// NewMapProvider returns a provider over the given files. Leading slashes
// and "./" prefixes in names are ignored.
func NewMapProvider(contents map[string]string) *MapProvider {
	m := make(mapFiles, len(contents))
	for name, text := range contents {
		m[cleanName(name)] = text
	}
	return &MapProvider{provider{files: m}}
}

type mapFiles map[string]string

func (m mapFiles) read(name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", fmt.Errorf("microapp: reading %s: %w", name, fs.ErrNotExist)
	}
	return text, nil
}

func (m mapFiles) screenNames() []string {
	var names []string
	for name := range m {
		dir, file := path.Split(name)
		if dir == DirScreens+"/" && strings.HasSuffix(file, ".xml") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func cleanName(name string) string {
	name = path.Clean("/" + strings.TrimSpace(name))
	return strings.TrimPrefix(name, "/")
}

// Sources reads every block of a package, treating missing files as empty.
func Sources(p FileProvider) parser.Sources {
	return parser.Sources{
		Microapp: p.ReadMicroappOrEmpty(),
		Styles:   p.ReadStylesOrEmpty(),
		Queries:  p.ReadQueriesOrEmpty(),
		Events:   p.ReadEvents(),
		Widgets:  p.ReadWidgets(),
		Layouts:  p.ReadLayouts(),
		Screens:  p.ReadScreensOrEmpty(),
	}
}

// TemplateSources reads a template package, which must carry a style
// registry and at least one screen.
func TemplateSources(p FileProvider) (parser.Sources, error) {
	styles, err := p.ReadStyles()
	if err != nil {
		return parser.Sources{}, err
	}
	screens, err := p.ReadScreens()
	if err != nil {
		return parser.Sources{}, err
	}
	return parser.Sources{
		Microapp: p.ReadMicroappOrEmpty(),
		Styles:   styles,
		Queries:  p.ReadQueriesOrEmpty(),
		Events:   p.ReadEvents(),
		Widgets:  p.ReadWidgets(),
		Layouts:  p.ReadLayouts(),
		Screens:  screens,
	}, nil
}
