package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/tartampluch/touch/internal/config"
)

// settingsWidgets holds references to UI elements to simplify data retrieval during save.
type settingsWidgets struct {
	langSelect    *widget.Select
	modeSelect    *widget.Select
	urlEntry      *widget.Entry
	userEntry     *widget.Entry
	tokenEntry    *widget.Entry
	pathEntry     *widget.Entry
	entryInterval *NumericalEntry
	entryPort     *NumericalEntry
	checkDark     *widget.Check
}

// ShowSettingsWindow displays the configuration dialog.
func (app *TouchApp) ShowSettingsWindow() {
	if app.Window != nil {
		slog.Debug(config.MsgFocusWin, config.LogKeyComponent, config.CompUISet)
		app.Window.RequestFocus()
		return
	}

	slog.Info(config.MsgOpenWin,
		config.LogKeyComponent, config.CompUISet,
		config.LogKeyWindow, config.TKeyWinSettings)
	w := app.App.NewWindow(app.GetMsg(config.TKeyWinSettings))
	app.Window = w

	sw := app.newSettingsWidgets()

	var refreshLayout func()
	onLayoutChange := func() {
		if refreshLayout != nil {
			refreshLayout()
		}
	}

	sourceCard := app.buildSourceCard(w, sw, onLayoutChange)

	widInterval := container.NewBorder(nil, nil, nil, widget.NewLabel(app.GetMsg(config.TKeyLblMinutes)), sw.entryInterval)
	itemInterval := widget.NewFormItem(app.GetMsg(config.TKeyLblRefresh), widInterval)
	itemInterval.HintText = app.GetMsg(config.TKeyHelpInterval)

	itemPort := widget.NewFormItem(app.GetMsg(config.TKeyLblPort), sw.entryPort)
	itemPort.HintText = app.GetMsg(config.TKeyHelpPort)

	generalForm := widget.NewForm(
		widget.NewFormItem(app.GetMsg(config.TKeyLblLanguage), sw.langSelect),
		itemInterval,
		itemPort,
		widget.NewFormItem("", sw.checkDark),
	)
	generalCard := widget.NewCard(app.GetMsg(config.TKeyLblGeneral), "", generalForm)

	btnSave := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnSave), theme.DocumentSaveIcon(), func() {
		if err := sw.entryPort.Validate(); err != nil {
			dialog.ShowError(err, w)
			return
		}
		app.saveSettings(sw)
		w.Close()
	})
	btnSave.Importance = widget.HighImportance
	btnCancel := widget.NewButtonWithIcon(app.GetMsg(config.TKeyBtnCancel), theme.CancelIcon(), func() { w.Close() })

	footerLabel := widget.NewLabel(fmt.Sprintf(app.GetMsg(config.TKeyLblFooter), config.Version))
	footerLabel.Alignment = fyne.TextAlignCenter
	footerLabel.TextStyle = fyne.TextStyle{Italic: true}

	paddedContent := container.NewPadded(container.NewVBox(
		sourceCard,
		generalCard,
		container.NewGridWithColumns(config.LayoutColumnsDouble, btnCancel, btnSave),
		footerLabel,
	))

	refreshLayout = func() {
		paddedContent.Refresh()
		w.Resize(fyne.NewSize(config.SettingsWindowWidth, paddedContent.MinSize().Height))
	}

	w.SetContent(paddedContent)
	w.SetFixedSize(true)
	w.SetOnClosed(func() { app.Window = nil })

	refreshLayout()
	w.Show()
}

// newSettingsWidgets builds the form fields pre-filled from preferences,
// the environment and the keyring.
func (app *TouchApp) newSettingsWidgets() *settingsWidgets {
	sw := &settingsWidgets{}

	sw.langSelect = widget.NewSelect(app.SupportedLanguages, nil)
	sw.langSelect.SetSelected(app.Preferences.StringWithFallback(config.PrefLanguage, config.DefaultLanguage))

	sw.modeSelect = widget.NewSelect([]string{
		app.GetMsg(config.TKeyModeWeb),
		app.GetMsg(config.TKeyModeLocal),
	}, nil)

	sw.urlEntry = widget.NewEntry()
	sw.urlEntry.SetText(app.Preferences.StringWithFallback(config.PrefBackendURL, app.Settings.BackendURL))
	sw.urlEntry.PlaceHolder = config.PlaceholderURL

	sw.userEntry = widget.NewEntry()
	sw.userEntry.SetText(app.Preferences.StringWithFallback(config.PrefAPIUser, app.Settings.APIUser))

	sw.tokenEntry = widget.NewPasswordEntry()
	if token, err := config.APIToken(sw.userEntry.Text); err == nil {
		sw.tokenEntry.SetText(token)
	}

	sw.pathEntry = widget.NewEntry()
	sw.pathEntry.SetText(app.Preferences.StringWithFallback(config.PrefLocalPath, app.Settings.LocalPath))

	// Zero disables the automatic refresh.
	sw.entryInterval = NewNumericalEntry(config.DisabledRefreshMinute, 0)
	sw.entryInterval.SetText(strconv.Itoa(app.Preferences.IntWithFallback(config.PrefRefreshMin, app.Settings.RefreshMinutes)))

	sw.entryPort = NewNumericalEntry(config.MinPort, config.MaxPort)
	sw.entryPort.SetText(app.Preferences.StringWithFallback(config.PrefFeedPort, app.Settings.FeedPort))
	sw.entryPort.Validator = app.portValidator()

	sw.checkDark = widget.NewCheck(app.GetMsg(config.TKeyLblDark), nil)
	sw.checkDark.Checked = app.Preferences.Bool(config.PrefDarkPalette)
	return sw
}

// portValidator maps range errors onto localized messages.
func (app *TouchApp) portValidator() fyne.StringValidator {
	return func(s string) error {
		if s == "" {
			return errors.New(app.GetMsg(config.TKeyErrPortReq))
		}
		port, err := strconv.Atoi(s)
		if err != nil {
			return errors.New(app.GetMsg(config.TKeyErrPortNum))
		}
		if port < config.MinPort || port > config.MaxPort {
			return errors.New(app.GetMsg(config.TKeyErrPortRange))
		}
		return nil
	}
}

// buildSourceCard constructs the reminder source selection UI.
func (app *TouchApp) buildSourceCard(w fyne.Window, sw *settingsWidgets, onLayoutChange func()) *widget.Card {
	browseBtn := widget.NewButton(app.GetMsg(config.TKeyBtnBrowse), func() {
		d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err == nil && r != nil {
				sw.pathEntry.SetText(r.URI().Path())
				_ = r.Close()
			}
		}, w)
		d.SetFilter(storage.NewExtensionFileFilter([]string{config.ExtVCF, config.ExtVCard}))
		d.Show()
	})

	itemURL := widget.NewFormItem(app.GetMsg(config.TKeyLblURL), sw.urlEntry)
	itemURL.HintText = app.GetMsg(config.TKeyHelpURL)

	webForm := widget.NewForm(
		itemURL,
		widget.NewFormItem(app.GetMsg(config.TKeyLblUser), sw.userEntry),
		widget.NewFormItem(app.GetMsg(config.TKeyLblToken), sw.tokenEntry),
	)
	localForm := widget.NewForm(
		widget.NewFormItem(app.GetMsg(config.TKeyLblPath), container.NewBorder(nil, nil, nil, browseBtn, sw.pathEntry)),
	)

	applyVisibility := func(mode string) {
		if mode == app.GetMsg(config.TKeyModeLocal) {
			webForm.Hide()
			localForm.Show()
		} else {
			webForm.Show()
			localForm.Hide()
		}
	}

	if app.Preferences.StringWithFallback(config.PrefSourceMode, app.Settings.SourceMode) == config.SourceModeLocal {
		sw.modeSelect.SetSelected(app.GetMsg(config.TKeyModeLocal))
	} else {
		sw.modeSelect.SetSelected(app.GetMsg(config.TKeyModeWeb))
	}
	applyVisibility(sw.modeSelect.Selected)

	sw.modeSelect.OnChanged = func(mode string) {
		applyVisibility(mode)
		onLayoutChange()
	}

	return widget.NewCard(app.GetMsg(config.TKeyLblSource), "", container.NewVBox(sw.modeSelect, webForm, localForm))
}

// saveSettings persists the form, then re-localizes and refreshes.
func (app *TouchApp) saveSettings(sw *settingsWidgets) {
	slog.Info(config.MsgSavingPrefs, config.LogKeyComponent, config.CompUISet)

	mode := config.SourceModeWeb
	if sw.modeSelect.Selected == app.GetMsg(config.TKeyModeLocal) {
		mode = config.SourceModeLocal
	}

	app.Preferences.SetString(config.PrefLanguage, sw.langSelect.Selected)
	app.Preferences.SetString(config.PrefSourceMode, mode)
	app.Preferences.SetString(config.PrefBackendURL, sw.urlEntry.Text)
	app.Preferences.SetString(config.PrefAPIUser, sw.userEntry.Text)
	app.Preferences.SetString(config.PrefLocalPath, sw.pathEntry.Text)
	app.Preferences.SetBool(config.PrefDarkPalette, sw.checkDark.Checked)

	if sw.userEntry.Text != "" && sw.tokenEntry.Text != "" {
		if err := config.StoreAPIToken(sw.userEntry.Text, sw.tokenEntry.Text); err != nil {
			slog.Error(config.ErrTokenStore,
				config.LogKeyError, err,
				config.LogKeyComponent, config.CompUISet)
		}
	}

	interval, ok := sw.entryInterval.Value()
	if !ok || interval == config.DisabledRefreshMinute {
		app.Preferences.SetInt(config.PrefRefreshMin, config.DisabledRefreshMinute)
		slog.Info(config.MsgRefreshDisabled, config.LogKeyComponent, config.CompUISet)
	} else {
		app.Preferences.SetInt(config.PrefRefreshMin, interval)
	}

	if sw.entryPort.Text != "" {
		app.Preferences.SetString(config.PrefFeedPort, sw.entryPort.Text)
	}

	app.UpdateLocalizer()
	app.RefreshTrayMenu()
	go app.Refresh(true)
}
