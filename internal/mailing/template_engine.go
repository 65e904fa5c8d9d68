// Package mailing renders the weekly jobs letter with the Liquid template
// language.
package mailing

import (
	"embed"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/jobbsy/jobsletter/internal/pkg/logger"
	"github.com/jobbsy/jobsletter/internal/routing"
)

// WeeklyJobsLetter is the template of the weekly letter.
const WeeklyJobsLetter = "weekly_jobsletter.html"

//go:embed templates/*.liquid
var templateFS embed.FS

// LinkGenerator builds absolute links to the public site.
type LinkGenerator interface {
	URL(name string, params map[string]string) (string, error)
}

// TemplateService handles Liquid template rendering with caching
type TemplateService struct {
	engine *liquid.Engine
	links  LinkGenerator
	source map[string]string
	cache  sync.Map // map[string]*liquid.Template
}

// NewTemplateService creates a template service over the embedded templates.
func NewTemplateService(links LinkGenerator) (*TemplateService, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	source := make(map[string]string, len(entries))
	for _, e := range entries {
		data, err := templateFS.ReadFile("templates/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", e.Name(), err)
		}
		source[strings.TrimSuffix(e.Name(), ".liquid")] = string(data)
	}

	return newTemplateService(links, source), nil
}

func newTemplateService(links LinkGenerator, source map[string]string) *TemplateService {
	ts := &TemplateService{
		engine: liquid.NewEngine(),
		links:  links,
		source: source,
	}
	ts.registerCustomFilters()
	return ts
}

// registerCustomFilters adds the letter-specific Liquid filters
func (ts *TemplateService) registerCustomFilters() {
	// {{ job.id | job_url }}
	ts.engine.RegisterFilter("job_url", func(id string) string {
		return ts.link(routing.RouteJobShow, map[string]string{
			"id":         id,
			"utm_source": "jobsletter",
			"utm_medium": "email",
		})
	})

	// {{ "job_post" | route_url }}
	ts.engine.RegisterFilter("route_url", func(name string) string {
		return ts.link(name, nil)
	})

	// {{ job.employment_type | employment_label }}
	ts.engine.RegisterFilter("employment_label", func(s string) string {
		if label, ok := employmentLabels[s]; ok {
			return label
		}
		return s
	})

	// {{ organization | default: "Confidential" }}
	ts.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	// {{ title | truncate: 60 }}, rune-safe
	ts.engine.RegisterFilter("truncate", func(s string, length int) string {
		r := []rune(s)
		if len(r) <= length {
			return s
		}
		if length <= 3 {
			return string(r[:length])
		}
		return string(r[:length-3]) + "..."
	})

	ts.engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})
}

var employmentLabels = map[string]string{
	"full_time":  "Full-time",
	"part_time":  "Part-time",
	"contract":   "Contract",
	"internship": "Internship",
}

func (ts *TemplateService) link(name string, params map[string]string) string {
	if ts.links == nil {
		return ""
	}
	u, err := ts.links.URL(name, params)
	if err != nil {
		logger.Warn("mailing: link generation failed", "route", name, "error", err)
		return ""
	}
	return u
}

// Render renders a named template with the given bindings. Parsed
// templates are cached by name.
func (ts *TemplateService) Render(name string, bindings map[string]interface{}) (string, error) {
	if cached, ok := ts.cache.Load(name); ok {
		return render(cached.(*liquid.Template), name, bindings)
	}

	src, ok := ts.source[name]
	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}

	tpl, err := ts.engine.ParseString(src)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	ts.cache.Store(name, tpl)

	return render(tpl, name, bindings)
}

func render(tpl *liquid.Template, name string, bindings map[string]interface{}) (string, error) {
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return out, nil
}
