package xlsx

import (
	"fmt"
	"path"
)

// relEntry is one relationship: id, schema type URI, target path, and
// whether the target lives outside the package (hyperlinks).
type relEntry struct {
	id       string
	typ      string
	target   string
	external bool
}

// relationships is the relationship list of one owning part. Ids are
// sequential integers starting at 1, scoped to the part; two
// registrations of the same target deliberately yield two entries.
type relationships struct {
	entries []relEntry
	last    int
}

func (r *relationships) add(typ, target string) string {
	r.last++
	id := fmt.Sprintf("rId%d", r.last)
	r.entries = append(r.entries, relEntry{id: id, typ: typ, target: target})
	return id
}

func (r *relationships) addExternal(typ, target string) string {
	r.last++
	id := fmt.Sprintf("rId%d", r.last)
	r.entries = append(r.entries, relEntry{id: id, typ: typ, target: target, external: true})
	return id
}

func (r *relationships) empty() bool { return r == nil || len(r.entries) == 0 }

func (r *relationships) ids() map[string]bool {
	m := map[string]bool{}
	if r == nil {
		return m
	}
	for _, e := range r.entries {
		m[e.id] = true
	}
	return m
}

// pkgRootPart is the pseudo part name owning the package-level
// relationship file.
const pkgRootPart = "/"

// relsPathFor maps an owning part name to its relationship file:
// /xl/workbook.xml -> /xl/_rels/workbook.xml.rels, and the package root
// to /_rels/.rels.
func relsPathFor(part string) string {
	if part == pkgRootPart {
		return "/_rels/.rels"
	}
	return path.Dir(part) + "/_rels/" + path.Base(part) + ".rels"
}

// contentTypes accumulates the [Content_Types].xml manifest: one Default
// entry per registered extension, one Override entry per XML part whose
// semantic type the extension alone cannot convey.
type contentTypes struct {
	defaults  map[string]string // extension -> content type
	overrides map[string]string // part name -> content type
}

func newContentTypes() *contentTypes {
	ct := &contentTypes{
		defaults:  map[string]string{},
		overrides: map[string]string{},
	}
	ct.defaults["xml"] = "application/xml"
	ct.defaults["rels"] = "application/vnd.openxmlformats-package.relationships+xml"
	return ct
}

func (ct *contentTypes) setDefault(ext, ctype string) {
	ct.defaults[ext] = ctype
}

func (ct *contentTypes) setOverride(part, ctype string) {
	ct.overrides[part] = ctype
}
