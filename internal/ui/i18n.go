package ui

import (
	"embed"
	"encoding/json"
	"log/slog"
	"path"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/touch/internal/config"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// SetupI18n loads every embedded locale and selects the preferred one.
// Languages whose file fails to load are not offered.
func (app *TouchApp) SetupI18n() {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	app.I18nBundle = bundle

	entries, err := localeFS.ReadDir(localeDir)
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return
	}

	log := slog.With(config.LogKeyComponent, config.CompI18n)
	var loaded []string
	for _, entry := range entries {
		name := entry.Name()
		lang, ok := localeCode(name)
		if !ok {
			log.Debug(config.MsgLocaleSkip, config.LogKeyFile, name)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, path.Join(localeDir, name)); err != nil {
			log.Error(config.ErrLocaleLoad,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		log.Debug(config.MsgLocaleLoaded, config.LogKeyLang, lang)
		loaded = append(loaded, lang)
	}

	if len(loaded) > 0 {
		app.SupportedLanguages = loaded
	}
	app.UpdateLocalizer()
}

const localeDir = "locales"

// localeCode extracts "fr" from "active.fr.json".
func localeCode(name string) (string, bool) {
	code, ok := strings.CutPrefix(name, "active.")
	if !ok {
		return "", false
	}
	code, ok = strings.CutSuffix(code, ".json")
	if !ok || code == "" || strings.Contains(code, ".") {
		return "", false
	}
	return code, true
}

// UpdateLocalizer switches to the language stored in preferences.
func (app *TouchApp) UpdateLocalizer() {
	lang := app.Preferences.String(config.PrefLanguage)
	if lang == "" {
		lang = config.DefaultLanguage
	}
	app.Localizer = i18n.NewLocalizer(app.I18nBundle, lang)
}

// GetMsg translates a key without template data.
func (app *TouchApp) GetMsg(key string) string {
	return app.T(key, nil)
}

// T translates a key with template data, returning the key itself when no
// translation exists. Its signature matches scheduler.Translator.
func (app *TouchApp) T(key string, data map[string]any) string {
	if app.Localizer == nil {
		return key
	}
	msg, err := app.Localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// Plural translates a key with plural forms, exposing the count as
// {{.Count}}. It returns "" when the key cannot be resolved.
func (app *TouchApp) Plural(key string, count int) string {
	if app.Localizer == nil {
		return ""
	}
	msg, err := app.Localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: map[string]any{"Count": count},
		PluralCount:  count,
	})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return ""
	}
	return msg
}
