// Package audit runs offline Lighthouse-style PWA checks against a built
// site directory.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pwakit/pwakit/internal/manifest"
)

// Result is the outcome of one check.
type Result struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report collects the results of an audit run.
type Report struct {
	Dir     string   `json:"dir"`
	Results []Result `json:"results"`
}

// Passed returns the number of passing checks.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// Failed returns the number of failing checks.
func (r *Report) Failed() int {
	return len(r.Results) - r.Passed()
}

// Score returns the passing percentage, 0-100.
func (r *Report) Score() int {
	if len(r.Results) == 0 {
		return 0
	}
	return r.Passed() * 100 / len(r.Results)
}

// manifestNames are the file names probed for the web-app manifest, in
// preference order.
var manifestNames = []string{"manifest.webmanifest", "manifest.json"}

// workerNames are the file names probed for the service worker script.
var workerNames = []string{"sw.js", "service-worker.js"}

// Run audits the built site at dir. It returns an error only when dir itself
// is unusable; individual findings are Results.
func Run(dir string) (*Report, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open site directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	report := &Report{Dir: dir}

	m, manifestPath := checkManifest(report, dir)
	checkIcons(report, dir, m)
	checkServiceWorker(report, dir)
	checkIndexHTML(report, dir, manifestPath)

	return report, nil
}

func add(report *Report, id, title string, passed bool, detail string) {
	report.Results = append(report.Results, Result{
		ID:     id,
		Title:  title,
		Passed: passed,
		Detail: detail,
	})
}

// checkManifest verifies a manifest exists and validates cleanly. It returns
// the parsed manifest (nil when absent or unparseable) for later checks.
func checkManifest(report *Report, dir string) (*manifest.Manifest, string) {
	var path string
	for _, name := range manifestNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
	}
	if path == "" {
		add(report, "manifest-exists", "Web app manifest present", false,
			"no manifest.webmanifest or manifest.json found")
		add(report, "manifest-valid", "Web app manifest valid", false,
			"no manifest to validate")
		return nil, ""
	}
	add(report, "manifest-exists", "Web app manifest present", true, filepath.Base(path))

	m, err := manifest.Load(path)
	if err != nil {
		add(report, "manifest-valid", "Web app manifest valid", false, err.Error())
		return nil, path
	}

	issues := manifest.Validate(m)
	if manifest.HasErrors(issues) {
		var msgs []string
		for _, issue := range issues {
			if issue.Severity == manifest.SeverityError {
				msgs = append(msgs, issue.Message)
			}
		}
		add(report, "manifest-valid", "Web app manifest valid", false, strings.Join(msgs, "; "))
	} else {
		add(report, "manifest-valid", "Web app manifest valid", true, "")
	}
	return m, path
}

// checkIcons verifies every manifest icon resolves to a file in the site.
func checkIcons(report *Report, dir string, m *manifest.Manifest) {
	if m == nil || len(m.Icons) == 0 {
		add(report, "icons-exist", "Manifest icons exist on disk", false,
			"no manifest icons to check")
		return
	}
	var missing []string
	for _, icon := range m.Icons {
		rel := strings.TrimPrefix(icon.Src, "/")
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			missing = append(missing, icon.Src)
		}
	}
	if len(missing) > 0 {
		add(report, "icons-exist", "Manifest icons exist on disk", false,
			"missing: "+strings.Join(missing, ", "))
		return
	}
	add(report, "icons-exist", "Manifest icons exist on disk", true, "")
}

// checkServiceWorker verifies a worker script ships with the site.
func checkServiceWorker(report *Report, dir string) {
	for _, name := range workerNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			add(report, "service-worker", "Service worker script present", true, name)
			return
		}
	}
	add(report, "service-worker", "Service worker script present", false,
		"no sw.js or service-worker.js found")
}

// checkIndexHTML verifies the document wiring: manifest link, worker
// registration, viewport and theme-color meta tags, and a version marker for
// the update manager.
func checkIndexHTML(report *Report, dir, manifestPath string) {
	path := filepath.Join(dir, "index.html")
	content, err := os.ReadFile(path)
	if err != nil {
		add(report, "index-exists", "index.html present", false, err.Error())
		return
	}
	add(report, "index-exists", "index.html present", true, "")

	doc := string(content)

	add(report, "sw-registered", "Service worker registration referenced",
		strings.Contains(doc, "serviceWorker.register") || referencesWorkerScript(dir, doc),
		"")

	if manifestPath != "" {
		add(report, "manifest-linked", "Manifest linked from index.html",
			strings.Contains(doc, filepath.Base(manifestPath)), "")
	}

	viewport, hasViewport := metaFromFile(path, "viewport")
	add(report, "viewport-meta", "Viewport meta tag present",
		hasViewport && viewport != "", "")

	_, hasThemeColor := metaFromFile(path, "theme-color")
	add(report, "theme-color-meta", "Theme color meta tag present", hasThemeColor, "")

	_, hasVersion := metaFromFile(path, "version")
	_, hasBuildTime := metaFromFile(path, "build-time")
	add(report, "version-meta", "Version or build-time meta tag present",
		hasVersion || hasBuildTime,
		"the update manager reports \"unknown\" without one")
}

func metaFromFile(path, name string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer func() { _ = f.Close() }()
	return manifest.MetaContent(f, name)
}

// referencesWorkerScript reports whether any script file shipped with the
// site registers a service worker, for sites that register outside
// index.html.
func referencesWorkerScript(dir, doc string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".js") {
			continue
		}
		if !strings.Contains(doc, name) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if strings.Contains(string(content), "serviceWorker.register") {
			return true
		}
	}
	return false
}
