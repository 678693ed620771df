package model

import (
	"path"
	"sort"
	"strings"
)

// FileCategory is a coarse file type used to break down wasted space.
type FileCategory int

const (
	CatOther FileCategory = iota
	CatMedia
	CatCode
	CatArchive
	CatDocument
	CatSystem
	CatExecutable
)

type categoryInfo struct {
	name  string
	color string
	exts  []string
}

var categories = map[FileCategory]categoryInfo{
	CatOther: {name: "Other", color: "#ABB2BF"},
	CatMedia: {name: "Media", color: "#E06C75", exts: []string{
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".webp", ".heic", ".tif", ".tiff", ".raw", ".cr2", ".nef",
		".mp4", ".mkv", ".avi", ".mov", ".wmv", ".webm", ".m4v", ".mpg", ".mpeg",
		".mp3", ".flac", ".wav", ".aac", ".ogg", ".m4a", ".opus",
	}},
	CatCode: {name: "Code", color: "#61AFEF", exts: []string{
		".go", ".py", ".js", ".ts", ".tsx", ".jsx", ".rs", ".c", ".h", ".cpp", ".hpp", ".java", ".kt", ".rb",
		".php", ".cs", ".swift", ".sh", ".html", ".css", ".sql", ".json", ".yaml", ".yml", ".toml", ".xml",
	}},
	CatArchive: {name: "Archives", color: "#E5C07B", exts: []string{
		".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz", ".zst", ".rar", ".7z", ".iso", ".dmg", ".deb", ".rpm", ".jar",
	}},
	CatDocument: {name: "Documents", color: "#98C379", exts: []string{
		".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".odt", ".ods", ".rtf", ".txt", ".md",
		".csv", ".epub",
	}},
	CatSystem: {name: "System", color: "#C678DD", exts: []string{
		".log", ".bak", ".tmp", ".swp", ".cache", ".db", ".sqlite", ".dll", ".so", ".dylib", ".ini", ".conf",
	}},
	CatExecutable: {name: "Executables", color: "#D19A66", exts: []string{
		".exe", ".msi", ".bin", ".app", ".wasm", ".class", ".pyc", ".o", ".a",
	}},
}

var extCategory = func() map[string]FileCategory {
	m := make(map[string]FileCategory)
	for cat, info := range categories {
		for _, ext := range info.exts {
			m[ext] = cat
		}
	}
	return m
}()

// CategoryName returns the display name for a category.
func CategoryName(cat FileCategory) string {
	if info, ok := categories[cat]; ok {
		return info.name
	}
	return categories[CatOther].name
}

// CategoryColor returns the hex color for a category.
func CategoryColor(cat FileCategory) string {
	if info, ok := categories[cat]; ok {
		return info.color
	}
	return categories[CatOther].color
}

// GetExtension returns the lowercase extension of the last path element.
func GetExtension(name string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
}

// ClassifyFile returns the category for a file name or path.
func ClassifyFile(name string) FileCategory {
	if cat, ok := extCategory[GetExtension(name)]; ok {
		return cat
	}
	return CatOther
}

// CategoryStats aggregates duplicate groups of one category.
type CategoryStats struct {
	Category FileCategory
	Groups   int
	Files    int64
	Wasted   int64
	TopExts  map[string]int64
}

// Breakdown groups wasted bytes by category, largest first. A group is
// classified by its first member.
func Breakdown(groups []DuplicateGroup) []CategoryStats {
	byCat := make(map[FileCategory]*CategoryStats)
	for i := range groups {
		g := &groups[i]
		if len(g.Files) == 0 {
			continue
		}
		name := g.Files[0].Path
		cat := ClassifyFile(name)
		st, ok := byCat[cat]
		if !ok {
			st = &CategoryStats{Category: cat, TopExts: make(map[string]int64)}
			byCat[cat] = st
		}
		st.Groups++
		st.Files += int64(g.Count())
		st.Wasted += g.Wasted()
		if ext := GetExtension(name); ext != "" {
			st.TopExts[ext] += g.Wasted()
		}
	}

	out := make([]CategoryStats, 0, len(byCat))
	for _, st := range byCat {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wasted != out[j].Wasted {
			return out[i].Wasted > out[j].Wasted
		}
		return out[i].Category < out[j].Category
	})
	return out
}
