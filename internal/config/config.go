package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client against the Touch backend.
var UserAgent = "Touch-Companion/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Touch"
	AppID             = "com.github.tartampluch.touch"
	KeyringService    = "com.github.tartampluch.touch"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	QueueFileName     = "queue.db"
	CLIName           = "touchctl"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagDB           = "db"
	FlagEnvFile      = "env-file"
	FlagYes          = "yes"
	FlagWatch        = "watch"
	FlagUser         = "user"
	FlagLast         = "last"
	FlagEvery        = "every"
	FlagDark         = "dark"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescDB       = "path to the local notification queue"
	FlagDescEnvFile  = "optional .env file with TOUCH_* settings"
	FlagDescYes      = "grant notification permission without prompting"
	FlagDescWatch    = "keep delivering due notifications until interrupted"
	FlagDescUser     = "backend account the token belongs to"
	FlagDescLast     = "last interaction (RFC 3339 or YYYY-MM-DD), empty for never"
	FlagDescEvery    = "target touch frequency in days"
	FlagDescDark     = "use the dark palette for colors"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// CLI Commands & Output
// -----------------------------------------------------------------------------

const (
	CmdShortRoot    = "Manage Touch reminders from the terminal"
	CmdShortPending = "List contacts that need attention"
	CmdShortEnable  = "Request permission and schedule reminders"
	CmdShortDisable = "Cancel every scheduled notification"
	CmdShortStatus  = "Show the campaign state and the notification queue"
	CmdShortDeliver = "Deliver notifications that are due"
	CmdShortFeed    = "Print the queue as an iCalendar feed"
	CmdShortHealth  = "Score a contact from its last interaction"
	CmdShortLogin   = "Store a backend API token in the OS keyring"

	OutPendingRow   = "%-24s %6.1f %5d  %s\n"
	OutPendingNone  = "Nobody needs attention right now."
	OutEnabled      = "Reminders enabled: %d notifications scheduled\n"
	OutDenied       = "Notification permission denied."
	OutDisabled     = "Reminders disabled."
	OutStatus       = "State: %s, %d scheduled\n"
	OutQueueRow     = "%-38s %-18s %s  %s\n"
	OutDelivered    = "%s  %s: %s\n"
	OutDeliverCount = "%d delivered\n"
	OutHealth       = "Health: %.1f (%s)\nColor: %s\nLast touch: %s\nOverdue: %d days\n"
	OutTokenStored  = "Token stored for %s\n"
	OutTokenPrompt  = "API token: "
	OutWarning      = "warning: %v\n"
	AnswerYes       = "y"
	AnswerYesLong   = "yes"
)

// -----------------------------------------------------------------------------
// Environment Variables
// -----------------------------------------------------------------------------

const (
	EnvBackendURL  = "TOUCH_BACKEND_URL"
	EnvAPIUser     = "TOUCH_API_USER"
	EnvSourceMode  = "TOUCH_SOURCE_MODE"
	EnvLocalPath   = "TOUCH_LOCAL_PATH"
	EnvDBPath      = "TOUCH_DB_PATH"
	EnvFeedPort    = "TOUCH_FEED_PORT"
	EnvRefreshMin  = "TOUCH_REFRESH_MINUTES"
	DefaultEnvFile = ".env"
)

// -----------------------------------------------------------------------------
// Preferences (desktop companion)
// -----------------------------------------------------------------------------

const (
	PrefRemindersEnabled = "reminders_enabled"
	PrefLanguage         = "language"
	PrefDarkPalette      = "dark_palette"
	PrefLastRun          = "last_run_version"
	PrefSourceMode       = "source_mode"
	PrefBackendURL       = "backend_url"
	PrefAPIUser          = "api_user"
	PrefLocalPath        = "local_path"
	PrefRefreshMin       = "refresh_minutes"
	PrefFeedPort         = "feed_port"
)

// SupportedLanguages defines the list of available UI languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyTrayStatus     = "tray_status"      // Requires Count > 0
	TKeyTrayStatusZero = "tray_status_zero" // Explicit key for 0
	TKeyTrayDisabled   = "tray_disabled"
	TKeyMenuEnable     = "menu_enable"
	TKeyMenuDisable    = "menu_disable"
	TKeyMenuRefresh    = "menu_refresh"
	TKeyPermTitle      = "perm_title"
	TKeyPermMessage    = "perm_message"
	TKeyNotifEnabled   = "notif_enabled"
	TKeyNotifDenied    = "notif_denied"
	TKeyNotifDisabled  = "notif_disabled"
	TKeyNotifError     = "notif_error"
	TKeyReminderTitle  = "reminder_title" // Requires Name
	TKeyReminderBody   = "reminder_body"  // Requires Name
	TKeyDailyTitle     = "daily_title"
	TKeyDailyBody      = "daily_body"
	TKeyWeeklyTitle    = "weekly_title"
	TKeyWeeklyBody     = "weekly_body"
	TKeyMenuAttention  = "menu_attention"
	TKeyMenuSettings   = "menu_settings"
	TKeyWinAttention   = "win_attention"
	TKeyWinSettings    = "win_settings"
	TKeyColName        = "col_name"
	TKeyColHealth      = "col_health"
	TKeyColOverdue     = "col_overdue"
	TKeyOverdueDays    = "overdue_days" // Requires Count
	TKeyDueSoon        = "due_soon"
	TKeyLblSource      = "lbl_source"
	TKeyModeWeb        = "mode_web"
	TKeyModeLocal      = "mode_local"
	TKeyLblURL         = "lbl_url"
	TKeyHelpURL        = "help_url"
	TKeyLblUser        = "lbl_user"
	TKeyLblToken       = "lbl_token"
	TKeyLblPath        = "lbl_path"
	TKeyBtnBrowse      = "btn_browse"
	TKeyLblGeneral     = "lbl_general"
	TKeyLblLanguage    = "lbl_language"
	TKeyLblRefresh     = "lbl_refresh"
	TKeyLblMinutes     = "lbl_minutes"
	TKeyHelpInterval   = "help_interval"
	TKeyLblPort        = "lbl_port"
	TKeyHelpPort       = "help_port"
	TKeyLblDark        = "lbl_dark"
	TKeyBtnSave        = "btn_save"
	TKeyBtnCancel      = "btn_cancel"
	TKeyLblFooter      = "lbl_footer"
	TKeyErrPortReq     = "err_port_required"
	TKeyErrPortNum     = "err_port_numeric"
	TKeyErrPortRange   = "err_port_range"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	SourceModeWeb         = "web"
	SourceModeLocal       = "local"
	DefaultSourceMode     = SourceModeWeb
	DefaultFeedPort       = "18081"
	DefaultRefreshMin     = 60
	DefaultLanguage       = "en"
	DefaultFrequencyDays  = 7
	AttentionThreshold    = 30.0 // Contacts below this health are pending reminders
	HealthGoodThreshold   = 70.0
	HealthWarnThreshold   = 40.0
	HealthMax             = 100.0
	HealthMin             = 0.0
	HoursPerDay           = 24
	DaysPerWeek           = 7
	DaysPerMonth          = 30
	DaysPerYear           = 365
	PriorityWarm          = "warm"
	PriorityGentle        = "gentle"
	MaxInitials           = 2
	DisabledRefreshMinute = 0
)

// -----------------------------------------------------------------------------
// UI Layout
// -----------------------------------------------------------------------------

const (
	SettingsWindowWidth = 460
	AttentionWinWidth   = 520
	AttentionWinHeight  = 420
	PermWinWidth        = 420
	PermWinHeight       = 200
	LayoutColumnsDouble = 2
	ColWidthName        = 260
	ColWidthHealth      = 90
	ColWidthOverdue     = 130
	SwatchWidth         = 4
	ColIDName           = 0
	ColIDHealth         = 1
	ColIDOverdue        = 2
	AttentionColumns    = 3
	TablePlaceholder    = "Placeholder Text"
	SortIconAsc         = " ▲"
	SortIconDesc        = " ▼"
	PlaceholderURL      = "https://touch.example.com"
	ExtVCF              = ".vcf"
	ExtVCard            = ".vcard"
	FormatHealthCell    = "%.0f"
	FormatNameCell      = "%s  %s"
	FallbackOverdue     = "%d d"
	FallbackDueSoon     = "Due soon"
)

// -----------------------------------------------------------------------------
// Notification Scheduling
// -----------------------------------------------------------------------------

const (
	// Fixed identifiers; rescheduling cancels then recreates under the same key.
	IDDailyCheck       = "daily-check"
	IDWeeklyReflection = "weekly-reflection"

	// Payload type tags carried in Notification.Data[DataKeyType].
	TypeReminder         = "reminder"
	TypeDailyCheck       = "daily-check"
	TypeWeeklyReflection = "weekly-reflection"

	DataKeyType      = "type"
	DataKeyContactID = "contactId"
	DataKeyCategory  = "categoryIdentifier"
	CategoryReminder = "touch-reminder"

	ChannelReminders        = "touch-reminders"
	ChannelWeekly           = "touch-weekly"
	ChannelRemindersName    = "Touch Reminders"
	ChannelWeeklyName       = "Weekly Reflections"
	ChannelRemindersDesc    = "Gentle reminders to stay connected with your people"
	ChannelWeeklyDesc       = "Weekly summaries of your relationship health"
	MaxContactReminders     = 5
	ReminderStaggerSeconds  = 3600
	DailyPeriodSeconds      = 86400
	WeeklyPeriodSeconds     = 604800
	DefaultDispatchInterval = 30 * time.Second

	SQLDriver     = "sqlite3"
	SQLDSNOptions = "?_busy_timeout=5000"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	ICalVersion   = "2.0"
	ICalProdid    = "-//Touch//Reminder Feed//EN"
	ICalCalName   = "Touch Reminders"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "touch"
	ICalAtStart   = "PT0S"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRRule       = "RRULE"
	PropCategories  = "CATEGORIES"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	FormatUID      = "%s@%s"
	FormatRRule    = "FREQ=%s;INTERVAL=%d"
	FreqWeekly     = "WEEKLY"
	FreqDaily      = "DAILY"
	FreqHourly     = "HOURLY"
	FreqMinutely   = "MINUTELY"
	FreqSecondly   = "SECONDLY"
	SecondsPerHour = 3600
	SecondsPerMin  = 60
	SecondsPerDay  = 86400
	SecondsPerWeek = 604800

	VCardFrequency   = "X-TOUCH-FREQUENCY-DAYS"
	VCardLastContact = "X-TOUCH-LAST-INTERACTION"
	VCardPinned      = "X-TOUCH-PINNED"
	VCardAvatarColor = "X-TOUCH-AVATAR-COLOR"

	DefaultICalRefresh = 15 * time.Minute

	// StubVCalendar is served while the queue is empty.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Data Formats & Limits
// -----------------------------------------------------------------------------

const (
	DateFormatFullDash = "2006-01-02"
	DateFormatRFC3339  = time.RFC3339

	MinPort = 1
	MaxPort = 65535
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout           = 30 * time.Second
	ShutdownTimeout       = 5 * time.Second
	ServerReadTimeout     = 10 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 60 * time.Second
	RetryAfterSeconds     = "10"
	AllowedMethods        = "GET, HEAD"
	MaxHTTPResponseSize   = 8 * 1024 * 1024 // 8MB of JSON is far beyond any reminder list
	SchemeHTTP            = "http"
	SchemeHTTPS           = "https"
	RouteFeed             = "/reminders.ics"
	RoutePendingReminders = "/api/notifications/pending"
	AddrSeparator         = ":"
	BearerPrefix          = "Bearer "
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderAccept          = "Accept"
	HeaderAuthorization   = "Authorization"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeJSON            = "application/json"
	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrLocalPathEmpty    = "configuration error: local path is empty"
	ErrBackendURLEmpty   = "configuration error: backend URL is empty"
	ErrFetcherMissing    = "internal error: network fetcher is not initialized"
	ErrModeUnsupport     = "configuration error: unsupported source mode"
	ErrServerStartup     = "server startup failed"
	ErrServerShutdown    = "server shutdown failed"
	ErrPortRequired      = "server port is required"
	ErrInvalidURL        = "invalid URL structure"
	ErrProtocol          = "unsupported protocol scheme (http/https only)"
	ErrDecodeReminders   = "failed to decode pending reminders"
	ErrVCardParse        = "failed to parse vCard stream"
	ErrICalEncode        = "failed to encode iCalendar data"
	ErrDateParse         = "unable to parse date"
	ErrLogFile           = "failed to open log file"
	ErrCacheDir          = "could not determine user cache dir"
	ErrConfigDir         = "could not determine user config dir"
	ErrCreateDir         = "could not create app directory"
	ErrAppFailed         = "application failed unexpectedly"
	ErrWriteResp         = "failed to write response body"
	ErrLocalesAccess     = "failed to access embedded locales"
	ErrLocaleLoad        = "failed to load locale file"
	ErrTrayNotSupported  = "system tray not supported on this platform/driver"
	ErrPermissionDenied  = "notification permission denied"
	ErrUnavailable       = "notification service unavailable"
	ErrMalformedEntry    = "malformed reminder entry"
	ErrChannelSetup      = "notification channel setup failed"
	ErrDailyCheck        = "daily check scheduling failed"
	ErrWeeklyReflection  = "weekly reflection scheduling failed"
	ErrContactReminders  = "contact reminder scheduling failed"
	ErrDisable           = "cancelling all notifications failed"
	ErrQueueOpen         = "open notification queue"
	ErrQueueSchema       = "init notification queue schema"
	ErrQueueTrigger      = "trigger seconds must be positive"
	ErrQueueDeliver      = "notification delivery failed"
	ErrTokenLookup       = "failed to read API token from keyring"
	ErrTokenStore        = "failed to store API token in keyring"
	ErrAPIUserRequired   = "backend user is required"
	ErrFrequencyPositive = "frequency must be a positive number of days"
	ErrTokenEmpty        = "API token is empty"
	ErrTokenRead         = "failed to read API token"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Reminder feed initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & User-Facing Copy
// -----------------------------------------------------------------------------

const (
	FallbackReminderTitle = "Touch — %s"
	FallbackReminderBody  = "It's been a while since you connected with %s. Maybe a quick message?"
	FallbackDailyTitle    = "Touch — Daily Check"
	FallbackDailyBody     = "Take a moment to see who could use a little connection today."
	FallbackWeeklyTitle   = "Touch — Weekly Reflection"
	FallbackWeeklyBody    = "How are your connections this week? Take a quick look at your relationship health."
	FallbackTrayDefault   = "Touch (%d scheduled)"
	FallbackTrayLabel     = "Touch"
	FallbackTrayError     = "Touch: Sync Error"

	LabelNever      = "Never"
	LabelToday      = "Today"
	LabelYesterday  = "Yesterday"
	FormatDaysAgo   = "%d days ago"
	FormatWeeksAgo  = "%d weeks ago"
	FormatMonthsAgo = "%d months ago"
	FormatYearsAgo  = "%d years ago"

	PromptPermission = "Allow Touch to send reminders? [y/N] "

	TitleStartupError = "Startup Error"
	MsgPortBusy       = "Reminder feed could not start on port %s. Is it already in use?"

	MsgRemindersScheduled = "Contact reminders scheduled"
	MsgRemindersCurrent   = "Contact reminders already current"
	MsgCampaignEnabled    = "Reminder campaign enabled"
	MsgCampaignDisabled   = "Reminder campaign disabled"
	MsgCampaignRestored   = "Reminder campaign restored"
	MsgPermissionDenied   = "Notification permission denied"
	MsgCancelIgnored      = "Ignoring cancel failure"
	MsgSkippedEntry       = "Skipping malformed reminder entry"
	MsgSkippedCard        = "Skipping malformed vCard"
	MsgSkippedValue       = "Skipping invalid contact field"
	MsgCollectStarted     = "Collecting pending reminders"
	MsgCollectDone        = "Pending reminders collected"
	MsgDelivered          = "Notification delivered"
	MsgQueued             = "Notification queued"
	MsgRefreshReq         = "Reminder refresh requested"
	MsgWorkerStart        = "Background worker started"
	MsgWorkerStop         = "Worker stopping due to context cancellation"
	MsgAppStop            = "Application stopped gracefully"
	MsgCtxCancel          = "Context cancelled, shutting down UI"
	MsgAppStarting        = "Starting application"
	MsgServerListen       = "Reminder feed listening"
	MsgServerStop         = "Shutting down reminder feed..."
	MsgFeedUpdated        = "Reminder feed updated"
	MsgLocaleSkip         = "Skipping non-locale file"
	MsgOpenWin            = "Opening window"
	MsgFocusWin           = "Window already open, requesting focus"
	MsgSavingPrefs        = "Saving preferences"
	MsgRefreshDisabled    = "Auto-refresh disabled via settings"
	MsgPermissionAsked    = "Asking for notification permission"
	MsgLocaleLoaded       = "Locale loaded successfully"
	MsgTransMissing       = "Missing translation key"
	MsgTokenMissing       = "API token unavailable (requests will be anonymous)"
	MsgEnvFileSkipped     = "No .env file loaded, using process environment"
	MsgLogWarning         = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyMode      = "mode"
	LogKeyInterval  = "interval"
	LogKeyUser      = "user"
	LogKeyID        = "identifier"
	LogKeyType      = "type"
	LogKeyContactID = "contact_id"
	LogKeyIndex     = "index"
	LogKeyDelay     = "delay_seconds"
	LogKeyCount     = "count"
	LogKeyCancelled = "cancelled"
	LogKeySkipped   = "skipped"
	LogKeyScheduled = "scheduled"
	LogKeyDelivered = "delivered"
	LogKeyTotal     = "total_cards"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyManual    = "manual"
	LogKeyValue     = "value"
	LogKeyWindow    = "window"
	LogKeyDuration  = "duration_ms"
	LogKeyBuild     = "build"
	LogKeyApp       = "app"
	LogKeyVersion   = "version"
	LogKeyCommit    = "commit"
	LogKeyDate      = "date"
	LogKeyGoVer     = "go_version"
	LogKeyEnv       = "env"
	LogKeyOS        = "os"
	LogKeyArch      = "arch"
	LogKeyPID       = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompUI        = "ui"
	CompUISet     = "ui_settings"
	CompEngine    = "engine"
	CompFetcher   = "fetcher"
	CompScheduler = "scheduler"
	CompQueue     = "queue"
	CompServer    = "server"
	CompWorker    = "worker"
	CompMain      = "main"
	CompCLI       = "cli"
	CompI18n      = "i18n"
	CompConfig    = "config"
)
