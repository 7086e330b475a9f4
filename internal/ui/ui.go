package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/touch/internal/config"
	"github.com/tartampluch/touch/internal/device"
	"github.com/tartampluch/touch/internal/engine"
	"github.com/tartampluch/touch/internal/scheduler"
	"github.com/tartampluch/touch/internal/server"
)

// Source produces the ranked "needs attention" list.
type Source interface {
	Collect(ctx context.Context, cfg engine.SourceConfig) ([]engine.ReminderEntry, error)
}

// TouchApp is the desktop companion: a tray menu driving the reminder
// campaign, a dispatcher showing due notifications and the ICS feed.
type TouchApp struct {
	App         fyne.App
	Window      fyne.Window
	Preferences fyne.Preferences
	I18nBundle  *i18n.Bundle
	Localizer   *i18n.Localizer
	Ctx         context.Context

	Settings  config.Settings
	Queue     *device.Queue
	Scheduler *scheduler.Scheduler
	Server    *server.FeedServer
	Source    Source
	Clock     engine.Clock

	Tray desktop.App
	Menu *fyne.Menu

	TrayStatusItem    *fyne.MenuItem
	TrayEnableItem    *fyne.MenuItem
	TrayDisableItem   *fyne.MenuItem
	TrayRefreshItem   *fyne.MenuItem
	TrayAttentionItem *fyne.MenuItem
	TraySettingsItem  *fyne.MenuItem

	SupportedLanguages []string
	configChan         chan string

	// Last collected entries, shown in the attention window.
	EntriesMut      sync.RWMutex
	Entries         []engine.ReminderEntry
	attentionWindow fyne.Window
}

// NewTouchApp constructs the application and wires dependencies.
func NewTouchApp(a fyne.App, ctx context.Context, settings config.Settings, q *device.Queue, srv *server.FeedServer, src Source) *TouchApp {
	a.SetIcon(theme.MailComposeIcon())

	app := &TouchApp{
		App:                a,
		Preferences:        a.Preferences(),
		Ctx:                ctx,
		Settings:           settings,
		Queue:              q,
		Server:             srv,
		Source:             src,
		Clock:              engine.RealClock{},
		SupportedLanguages: config.SupportedLanguages,
		configChan:         make(chan string, config.ChannelBufferSize),
	}
	app.Scheduler = scheduler.New(q, app.T)
	return app
}

// Run launches the application services and the main UI loop.
func (app *TouchApp) Run() {
	app.SetupI18n()
	app.watchPreferences()

	go func() {
		if err := app.Server.Start(app.Ctx); err != nil {
			slog.Error(config.ErrServerStartup,
				config.LogKeyError, err,
				config.LogKeyComponent, config.CompUI)

			app.notify(config.TitleStartupError, fmt.Sprintf(config.MsgPortBusy, app.Server.Port))
		}
	}()

	if desk, ok := app.App.(desktop.App); ok {
		app.Tray = desk
		app.Tray.SetSystemTrayIcon(app.App.Icon())
		app.setupTrayMenu()
	} else {
		slog.Warn(config.ErrTrayNotSupported,
			config.LogKeyComponent, config.CompUI)
	}

	go app.backgroundWorker()
	go app.dispatcher()
	app.App.Run()
}

// watchPreferences nudges the worker when settings change.
func (app *TouchApp) watchPreferences() {
	app.Preferences.AddChangeListener(func() {
		select {
		case app.configChan <- config.PrefRefreshMin:
		default:
		}
	})
}

// setupTrayMenu constructs the system tray menu.
func (app *TouchApp) setupTrayMenu() {
	app.TrayStatusItem = fyne.NewMenuItem(config.FallbackTrayLabel, func() {
		app.ShowAttentionWindow()
	})
	app.TrayAttentionItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuAttention), func() {
		app.ShowAttentionWindow()
	})
	app.TrayEnableItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuEnable), func() {
		go app.EnableReminders()
	})
	app.TrayDisableItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuDisable), func() {
		go app.DisableReminders()
	})
	app.TrayRefreshItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuRefresh), func() {
		go app.Refresh(true)
	})
	app.TraySettingsItem = fyne.NewMenuItem(app.GetMsg(config.TKeyMenuSettings), func() {
		app.ShowSettingsWindow()
	})

	app.Menu = fyne.NewMenu(config.AppName,
		app.TrayStatusItem,
		app.TrayAttentionItem,
		fyne.NewMenuItemSeparator(),
		app.TrayEnableItem,
		app.TrayDisableItem,
		app.TrayRefreshItem,
		fyne.NewMenuItemSeparator(),
		app.TraySettingsItem,
	)

	if app.Tray != nil {
		app.Tray.SetSystemTrayMenu(app.Menu)
	}
	app.updateTrayStatus()
}

// RefreshTrayMenu updates localized labels in the tray menu.
func (app *TouchApp) RefreshTrayMenu() {
	if app.Menu == nil {
		return
	}
	app.TrayAttentionItem.Label = app.GetMsg(config.TKeyMenuAttention)
	app.TrayEnableItem.Label = app.GetMsg(config.TKeyMenuEnable)
	app.TrayDisableItem.Label = app.GetMsg(config.TKeyMenuDisable)
	app.TrayRefreshItem.Label = app.GetMsg(config.TKeyMenuRefresh)
	app.TraySettingsItem.Label = app.GetMsg(config.TKeyMenuSettings)
	app.updateTrayStatus()
}

// backgroundWorker restores the campaign state, then re-collects pending
// reminders on the refresh schedule.
func (app *TouchApp) backgroundWorker() {
	log := slog.With(config.LogKeyComponent, config.CompWorker)

	if _, err := app.Scheduler.Refresh(app.Ctx); err != nil {
		log.Warn(config.ErrUnavailable, config.LogKeyError, err)
	} else if app.restoreCampaign() {
		log.Info(config.MsgCampaignRestored)
	} else {
		app.Refresh(false)
	}

	// A zero interval disables the automatic refresh.
	getInterval := func() time.Duration {
		val := app.Preferences.IntWithFallback(config.PrefRefreshMin, app.Settings.RefreshMinutes)
		if val < 0 {
			val = config.DefaultRefreshMin
		}
		return time.Duration(val) * time.Minute
	}

	currentDuration := getInterval()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	if currentDuration > 0 {
		ticker.Reset(currentDuration)
	} else {
		ticker.Stop()
	}

	log.Info(config.MsgWorkerStart, config.LogKeyInterval, currentDuration)

	for {
		select {
		case <-app.Ctx.Done():
			log.Info(config.MsgWorkerStop)
			return

		case <-app.configChan:
			d := getInterval()
			if d == currentDuration {
				continue
			}
			currentDuration = d
			if d > 0 {
				ticker.Reset(d)
			} else {
				ticker.Stop()
			}

		case <-ticker.C:
			app.Refresh(false)
		}
	}
}

// dispatcher shows due notifications as they fall due.
func (app *TouchApp) dispatcher() {
	ticker := time.NewTicker(config.DefaultDispatchInterval)
	defer ticker.Stop()

	for {
		app.DeliverDue()

		select {
		case <-app.Ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DeliverDue hands due notifications to the desktop and republishes the
// feed when anything was delivered.
func (app *TouchApp) DeliverDue() int {
	n, err := app.Queue.DeliverDue(app.Ctx, device.DeliverFunc(app.deliver))
	if err != nil && app.Ctx.Err() == nil {
		slog.Warn(config.ErrQueueDeliver,
			config.LogKeyComponent, config.CompWorker,
			config.LogKeyError, err)
	}
	if n > 0 {
		if _, err := app.Scheduler.Refresh(app.Ctx); err != nil {
			slog.Warn(config.ErrUnavailable,
				config.LogKeyComponent, config.CompWorker,
				config.LogKeyError, err)
		}
		app.afterChange()
	}
	return n
}

func (app *TouchApp) deliver(_ context.Context, n scheduler.Notification) error {
	app.notify(n.Title, n.Body)
	return nil
}

// EnableReminders collects pending reminders and starts the campaign.
// A failed collection still enables the recurring notifications and leaves
// queued contact reminders alone.
func (app *TouchApp) EnableReminders() {
	app.enableReminders(true)
}

// restoreCampaign re-enables a campaign the user left on whose
// notifications are gone from the queue. It reports whether it ran.
func (app *TouchApp) restoreCampaign() bool {
	if !app.Preferences.Bool(config.PrefRemindersEnabled) || app.Scheduler.State() != scheduler.Disabled {
		return false
	}
	app.enableReminders(false)
	return true
}

func (app *TouchApp) enableReminders(announce bool) {
	entries, err := app.collect()
	if err != nil {
		slog.Warn(config.ErrContactReminders,
			config.LogKeyComponent, config.CompUI,
			config.LogKeyError, err)
		err = app.Scheduler.EnableRecurring(app.Ctx)
	} else {
		err = app.Scheduler.Enable(app.Ctx, entries)
	}

	switch {
	case errors.Is(err, scheduler.ErrPermissionDenied):
		app.Preferences.SetBool(config.PrefRemindersEnabled, false)
		app.notify(config.AppName, app.GetMsg(config.TKeyNotifDenied))
	case app.Scheduler.State() != scheduler.Enabled:
		app.notify(config.AppName, app.GetMsg(config.TKeyNotifError))
	default:
		app.Preferences.SetBool(config.PrefRemindersEnabled, true)
		if err != nil {
			slog.Warn(config.MsgCampaignEnabled,
				config.LogKeyComponent, config.CompUI,
				config.LogKeyError, err)
		}
		if announce {
			app.notify(config.AppName, app.GetMsg(config.TKeyNotifEnabled))
		}
	}
	app.afterChange()
}

// DisableReminders cancels every scheduled notification.
func (app *TouchApp) DisableReminders() {
	if err := app.Scheduler.Disable(app.Ctx); err != nil {
		slog.Error(config.ErrDisable,
			config.LogKeyComponent, config.CompUI,
			config.LogKeyError, err)
		app.notify(config.AppName, app.GetMsg(config.TKeyNotifError))
		return
	}
	app.Preferences.SetBool(config.PrefRemindersEnabled, false)
	app.notify(config.AppName, app.GetMsg(config.TKeyNotifDisabled))
	app.afterChange()
}

// Refresh re-collects pending reminders and, while the campaign is enabled,
// reschedules the contact reminders if the ranked batch changed.
func (app *TouchApp) Refresh(manual bool) {
	slog.Info(config.MsgRefreshReq,
		config.LogKeyComponent, config.CompUI,
		config.LogKeyManual, manual)

	entries, err := app.collect()
	if err != nil {
		slog.Error(config.ErrContactReminders,
			config.LogKeyComponent, config.CompUI,
			config.LogKeyError, err)
		if manual {
			app.notify(config.FallbackTrayError, app.GetMsg(config.TKeyNotifError))
		}
		app.afterChange()
		return
	}

	if app.Scheduler.State() == scheduler.Enabled {
		if _, _, err := app.Scheduler.RefreshReminders(app.Ctx, entries); err != nil {
			slog.Error(config.ErrContactReminders,
				config.LogKeyComponent, config.CompUI,
				config.LogKeyError, err)
		}
	}
	app.afterChange()
}

func (app *TouchApp) collect() ([]engine.ReminderEntry, error) {
	if app.Source == nil {
		return nil, errors.New(config.ErrFetcherMissing)
	}
	entries, err := app.Source.Collect(app.Ctx, app.sourceConfig())
	if err != nil {
		return nil, err
	}

	app.EntriesMut.Lock()
	app.Entries = entries
	app.EntriesMut.Unlock()
	return entries, nil
}

// afterChange republishes the feed and the tray status from the queue.
func (app *TouchApp) afterChange() {
	app.publishFeed()
	app.updateTrayStatus()
}

func (app *TouchApp) publishFeed() {
	if app.Server == nil {
		return
	}
	list, err := app.Queue.ListScheduled(app.Ctx)
	if err != nil {
		slog.Error(config.ErrUnavailable,
			config.LogKeyComponent, config.CompUI,
			config.LogKeyError, err)
		return
	}
	if err := app.Server.Publish(list, app.Clock.Now()); err != nil {
		slog.Error(config.ErrICalEncode,
			config.LogKeyComponent, config.CompUI,
			config.LogKeyError, err)
	}
}

// StatusLabel renders the tray status line for the current campaign.
func (app *TouchApp) StatusLabel() string {
	if app.Scheduler.State() != scheduler.Enabled {
		return app.GetMsg(config.TKeyTrayDisabled)
	}

	count := app.Scheduler.LastCount()
	if count == 0 {
		return app.GetMsg(config.TKeyTrayStatusZero)
	}
	if msg := app.Plural(config.TKeyTrayStatus, count); msg != "" {
		return msg
	}
	return fmt.Sprintf(config.FallbackTrayDefault, count)
}

// updateTrayStatus refreshes the status line and the enable/disable items.
func (app *TouchApp) updateTrayStatus() {
	if app.Menu == nil || app.TrayStatusItem == nil {
		return
	}
	label := app.StatusLabel()
	enabled := app.Scheduler.State() == scheduler.Enabled

	fyne.Do(func() {
		app.TrayStatusItem.Label = label
		app.TrayEnableItem.Disabled = enabled
		app.TrayDisableItem.Disabled = !enabled
		app.Menu.Refresh()
	})
}

// AskPermission shows a confirm dialog and blocks until the user answers,
// closes the window or ctx ends. Closing the window counts as a refusal.
func (app *TouchApp) AskPermission(ctx context.Context) (bool, error) {
	slog.Info(config.MsgPermissionAsked, config.LogKeyComponent, config.CompUI)

	answer := make(chan bool, config.ChannelBufferSize)
	send := func(ok bool) {
		select {
		case answer <- ok:
		default:
		}
	}

	var w fyne.Window
	fyne.DoAndWait(func() {
		w = app.App.NewWindow(app.GetMsg(config.TKeyPermTitle))
		w.Resize(fyne.NewSize(config.PermWinWidth, config.PermWinHeight))
		w.SetOnClosed(func() { send(false) })
		dialog.ShowConfirm(app.GetMsg(config.TKeyPermTitle), app.GetMsg(config.TKeyPermMessage), func(ok bool) {
			send(ok)
			w.Close()
		}, w)
		w.Show()
	})

	select {
	case ok := <-answer:
		return ok, nil
	case <-ctx.Done():
		fyne.Do(w.Close)
		return false, ctx.Err()
	}
}

// sourceConfig assembles the reminder source from preferences, falling back
// to the environment, with the token from the keyring.
func (app *TouchApp) sourceConfig() engine.SourceConfig {
	cfg := engine.SourceConfig{
		Mode:       app.Preferences.StringWithFallback(config.PrefSourceMode, app.Settings.SourceMode),
		BackendURL: app.Preferences.StringWithFallback(config.PrefBackendURL, app.Settings.BackendURL),
		LocalPath:  app.Preferences.StringWithFallback(config.PrefLocalPath, app.Settings.LocalPath),
	}

	user := app.Preferences.StringWithFallback(config.PrefAPIUser, app.Settings.APIUser)
	token, err := config.APIToken(user)
	if err != nil {
		slog.Debug(config.MsgTokenMissing,
			config.LogKeyUser, user,
			config.LogKeyError, err,
			config.LogKeyComponent, config.CompUI)
	}
	cfg.Token = token
	return cfg
}

func (app *TouchApp) notify(title, body string) {
	fyne.Do(func() {
		app.App.SendNotification(fyne.NewNotification(title, body))
	})
}
