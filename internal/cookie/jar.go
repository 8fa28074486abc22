package cookie

import (
	"net/http"
	"strings"
)

// Jar is the explicit cookie state passed between replay pipeline steps.
// Each step receives the jar accumulated so far and returns a new jar; steps
// never share header strings. Insertion order is preserved so the engine sees
// cookies in the order it set them.
type Jar struct {
	order   []string
	cookies map[string]*http.Cookie
}

// NewJar returns an empty jar.
func NewJar() Jar {
	return Jar{cookies: map[string]*http.Cookie{}}
}

// With returns a copy of the jar with the given cookie set. The cookie's
// Path is re-rooted to "/" so later internal calls to other engine paths
// still present it.
func (j Jar) With(c *http.Cookie) Jar {
	out := j.clone()
	rerooted := *c
	rerooted.Path = "/"
	if _, seen := out.cookies[c.Name]; !seen {
		out.order = append(out.order, c.Name)
	}
	out.cookies[c.Name] = &rerooted
	return out
}

// Merge returns a copy of the jar extended with every Set-Cookie value of the
// response. Later values for the same name replace earlier ones.
func (j Jar) Merge(resp *http.Response) Jar {
	out := j
	for _, c := range resp.Cookies() {
		out = out.With(c)
	}
	return out
}

// Get returns the value of a named cookie and whether it is present.
func (j Jar) Get(name string) (string, bool) {
	c, ok := j.cookies[name]
	if !ok {
		return "", false
	}
	return c.Value, true
}

// Len reports the number of cookies held.
func (j Jar) Len() int {
	return len(j.order)
}

// Header renders the jar as a Cookie header value.
func (j Jar) Header() string {
	pairs := make([]string, 0, len(j.order))
	for _, name := range j.order {
		pairs = append(pairs, name+"="+j.cookies[name].Value)
	}
	return strings.Join(pairs, "; ")
}

// Apply sets the jar as the Cookie header of an outgoing request.
func (j Jar) Apply(req *http.Request) {
	if len(j.order) == 0 {
		return
	}
	req.Header.Set("Cookie", j.Header())
}

func (j Jar) clone() Jar {
	out := Jar{
		order:   make([]string, len(j.order)),
		cookies: make(map[string]*http.Cookie, len(j.cookies)),
	}
	copy(out.order, j.order)
	for name, c := range j.cookies {
		out.cookies[name] = c
	}
	return out
}
