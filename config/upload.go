package config

type UploadConfig struct {
	AllowedMimeTypes []string
	MaxSizeMB        int64
	PathPrefix       string
}

// UploadContexts - правила загрузки файлов по контексту.
var UploadContexts = map[string]UploadConfig{
	"order_photo": {
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/webp", "image/jpg"},
		MaxSizeMB:        20,
		PathPrefix:       "orders",
	},
	"equipment_import": {
		AllowedMimeTypes: []string{"application/zip", "application/octet-stream"},
		MaxSizeMB:        10,
	},
}
