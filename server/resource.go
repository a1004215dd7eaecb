package server

import (
	"context"
	"fmt"
	"strings"
)

const defaultMimeType = "text/plain"

// ResourceContent is a fully formed resource payload. Handlers may return it
// directly to bypass normalization of plain values.
type ResourceContent struct {
	URI         string `json:"uri"`
	MimeType    string `json:"mimeType,omitempty"`
	Text        string `json:"text,omitempty"`
	Data        string `json:"data,omitempty"` // base64-encoded binary content
	Description string `json:"description,omitempty"`
}

// ResourceHandler is the function signature for resource handlers. The
// returned value may be a string, []byte, map[string]any, or *ResourceContent;
// it is normalized into the protocol payload after the call.
type ResourceHandler func(ctx context.Context, uri string, params map[string]string) (any, error)

// Resource represents a URI-addressable piece of readable content.
//
// A URI template is either fully static (res://changelog) or carries exactly
// one trailing parameter segment (res://doc/{doc_id}). Anything more general
// is rejected at registration: resources map 1:1 to URIs, and a single
// trailing capture is all a one-argument read method can consume.
type Resource struct {
	uriTemplate string
	name        string
	description string
	mimeType    string
	handler     ResourceHandler

	// compiled matcher state
	prefix string // static portion up to the placeholder (or the whole URI)
	param  string // placeholder name, empty for static templates
}

// ResourceInfo represents metadata about a registered resource.
type ResourceInfo struct {
	URITemplate string
	Name        string
	Description string
	MimeType    string
}

// ResourceBuilder provides a fluent API for building resources.
type ResourceBuilder struct {
	resource *Resource
	server   *Server
	err      error
}

// Name sets an optional human-readable name for the resource.
// If unset, it is derived from the template's slug.
func (b *ResourceBuilder) Name(name string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.name = name
	return b
}

// Description sets the resource description.
func (b *ResourceBuilder) Description(desc string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.description = desc
	return b
}

// MimeType sets the default MIME type of the resource content.
func (b *ResourceBuilder) MimeType(mimeType string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.mimeType = mimeType
	return b
}

// Handler sets the resource handler function and registers the resource.
func (b *ResourceBuilder) Handler(fn ResourceHandler) *ResourceBuilder {
	if b.err != nil {
		return b
	}

	b.resource.handler = fn

	if err := b.resource.compileTemplate(); err != nil {
		b.err = fmt.Errorf("resource %q: %w", b.resource.uriTemplate, err)
		return b
	}

	if b.resource.name == "" {
		b.resource.name = TitleCaseSlug(slugFromTemplate(b.resource.prefix))
	}

	b.server.registerResource(b.resource)
	return b
}

// Err returns the first error encountered while building, if any.
func (b *ResourceBuilder) Err() error {
	return b.err
}

// compileTemplate validates the template shape and precomputes the matcher:
// a static URI, or a static prefix followed by one trailing {param} segment.
func (r *Resource) compileTemplate() error {
	t := r.uriTemplate

	open := strings.IndexByte(t, '{')
	if open == -1 {
		if strings.ContainsAny(t, "}") {
			return fmt.Errorf("unbalanced placeholder braces")
		}
		r.prefix = t
		return nil
	}

	if !strings.HasSuffix(t, "}") || open == len(t)-1 {
		return fmt.Errorf("placeholder must be the trailing segment")
	}
	name := t[open+1 : len(t)-1]
	if name == "" || strings.ContainsAny(name, "{}/") {
		return fmt.Errorf("invalid placeholder %q", name)
	}
	prefix := t[:open]
	if strings.ContainsAny(prefix, "{}") {
		return fmt.Errorf("at most one placeholder is supported")
	}
	if !strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("placeholder must occupy its own trailing segment")
	}

	r.prefix = prefix
	r.param = name
	return nil
}

// Match reports whether the candidate URI matches this resource's template
// and returns the extracted parameter, if any. A parametric template matches
// only when the trailing segment is non-empty and contains no further slash.
func (r *Resource) Match(uri string) (map[string]string, bool) {
	if r.param == "" {
		if uri == r.prefix {
			return map[string]string{}, true
		}
		return nil, false
	}

	rest, ok := strings.CutPrefix(uri, r.prefix)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return nil, false
	}
	return map[string]string{r.param: rest}, true
}

// URITemplate returns the resource's URI template.
func (r *Resource) URITemplate() string { return r.uriTemplate }

// MimeType returns the default MIME type of the resource content.
func (r *Resource) MimeType() string { return r.mimeType }

// Description returns the resource description.
func (r *Resource) Description() string { return r.description }

// ParamNames returns the ordered placeholder names of the template
// (at most one).
func (r *Resource) ParamNames() []string {
	if r.param == "" {
		return nil
	}
	return []string{r.param}
}

// Read invokes the resource handler for a URI already matched against this
// resource, passing along the extracted parameters.
func (r *Resource) Read(ctx context.Context, uri string, params map[string]string) (any, error) {
	return r.handler(ctx, uri, params)
}

// meta builds the introspection entry for this resource.
func (r *Resource) meta() MethodMeta {
	var params []ParamMeta
	if r.param != "" {
		params = append(params, ParamMeta{Name: r.param, Type: "string", Required: true})
	}
	return MethodMeta{
		Name:       r.uriTemplate,
		Category:   CategoryResource,
		Params:     params,
		ReturnType: "any",
		Doc:        r.description,
	}
}

// TitleCaseSlug renders a slug like "recipe_book" as "Recipe Book".
func TitleCaseSlug(slug string) string {
	parts := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '_' || r == '-'
	})
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	if len(parts) == 0 {
		return slug
	}
	return strings.Join(parts, " ")
}

// slugFromTemplate extracts the slug part of a URI prefix: the path after
// the scheme, trimmed of the trailing separator of parametric templates.
func slugFromTemplate(prefix string) string {
	if i := strings.Index(prefix, "://"); i != -1 {
		prefix = prefix[i+3:]
	}
	return strings.TrimSuffix(prefix, "/")
}
