package util

import "github.com/sadopc/godupe/internal/model"

var categoryIcons = map[model.FileCategory]string{
	model.CatMedia:      "🎬",
	model.CatCode:       "💻",
	model.CatArchive:    "📦",
	model.CatDocument:   "📝",
	model.CatSystem:     "⚙️",
	model.CatExecutable: "⚡",
}

// CategoryIcon returns the icon shown next to a file category.
func CategoryIcon(cat model.FileCategory) string {
	if icon, ok := categoryIcons[cat]; ok {
		return icon
	}
	return "📄"
}

// FileIcon returns an icon based on the file's category.
func FileIcon(name string) string {
	return CategoryIcon(model.ClassifyFile(name))
}
