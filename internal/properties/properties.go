package properties

import (
	"os"
	"path/filepath"
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func dataPath(parts ...string) string {
	return filepath.Join(append([]string{RootPath(), "data"}, parts...)...)
}

// ImageryDirectory holds the composite images named <tile>_<sensor>_<YYYYMMDD>_..._B2-4_8.img.
func ImageryDirectory() string {
	return getenv("IMAGERY_DIR", dataPath("imagery"))
}

func OutputDirectory() string {
	return getenv("OUTPUT_DIR", dataPath("result"))
}

func FieldsPath() string {
	return getenv("FIELDS_PATH", dataPath("fields", "fields.geojson"))
}

func Region() string {
	return getenv("REGION", "region")
}

func ZoneField() string {
	return getenv("ZONE_FIELD", "FIELD_ID")
}

func SelectionInput() string {
	return getenv("SELECTION_INPUT", dataPath("selection", "Random_Field_Selection.xlsx"))
}

func SelectionSheet() string {
	return os.Getenv("SELECTION_SHEET")
}

func ParametersFile() string {
	return os.Getenv("PARAMETERS_FILE")
}

func LogLevel() string {
	return getenv("LOG_LEVEL", "info")
}

func CachePath() string {
	return dataPath("cache")
}

type Color struct {
	R, G, B uint8
}

var ColorMap = map[string]Color{
	"Fallow":     {166, 118, 29},
	"Not_Fallow": {46, 139, 87},
	"unknown":    {160, 160, 160},
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}
