package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed schedule.yaml
var scheduleYAML []byte

type Config struct {
	Database  DatabaseConfig
	Corpus    CorpusConfig
	Embedding EmbeddingConfig
	Matching  MatchingConfig
	Camera    CameraConfig
	Voice     VoiceConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Dashboard DashboardConfig
	Schedule  ScheduleConfig
}

type DatabaseConfig struct {
	Path         string        // SQLite file shared by both camera processes and the dashboard
	BusyTimeout  time.Duration // how long a writer waits for the other process' lock
	MaxOpenConns int
}

type CorpusConfig struct {
	Path      string // gob file holding every registered embedding
	ImagesDir string // where registration samples are written, one directory per employee
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
}

type MatchingConfig struct {
	Metric    string  // "distance" or "similarity"
	Threshold float64 // 0.45 for distance, 0.6 for similarity
}

type CameraConfig struct {
	Command  string // frame grabber, {device} is replaced with /dev/videoN
	InIndex  int
	OutIndex int
}

type VoiceConfig struct {
	Speaker        string // command, openai or none
	SpeakCommand   string
	PlayerCommand  string
	RecordCommand  string
	Transcriber    string // openai, gemini or none
	SpeechTimeout  time.Duration
	ListenTimeout  time.Duration
	OpenAIVoice    string
	GeminiModel    string
	TranscribeLang string
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type DashboardConfig struct {
	AdminPassword  string // seeded for the admin account on first start
	SessionSecret  string
	AllowedOrigins string // comma-separated CORS whitelist
}

type ScheduleConfig struct {
	Entry             EntryRules   `yaml:"entry"`
	BreakWindows      []WindowSpec `yaml:"break_windows"`
	PermissionWindows []WindowSpec `yaml:"permission_windows"`
	Exit              ExitRules    `yaml:"exit"`
}

type EntryRules struct {
	OnTimeUntil   string `yaml:"on_time_until"`
	DelayBaseHour int    `yaml:"delay_base_hour"`
}

type WindowSpec struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type ExitRules struct {
	CorrectionFrom     string        `yaml:"correction_from"`
	CorrectionCooldown time.Duration `yaml:"correction_cooldown"`
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// LoadSchedule parses the embedded schedule, or the file at path when set.
func LoadSchedule(path string) (ScheduleConfig, error) {
	data := scheduleYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return ScheduleConfig{}, fmt.Errorf("reading schedule file: %w", err)
		}
		data = b
	}

	var sc ScheduleConfig
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return ScheduleConfig{}, fmt.Errorf("parsing schedule: %w", err)
	}
	return sc, nil
}

func Load() *Config {
	schedule, err := LoadSchedule(os.Getenv("SCHEDULE_FILE"))
	if err != nil {
		// The embedded file always parses, so this only fires for a broken override.
		panic("failed to load schedule: " + err.Error())
	}

	metric := envString("MATCH_METRIC", "distance")
	defaultThreshold := 0.45
	if metric == "similarity" {
		defaultThreshold = 0.6
	}

	return &Config{
		Database: DatabaseConfig{
			Path:         envString("DATABASE_PATH", "database/attendance.db"),
			BusyTimeout:  envDuration("DATABASE_BUSY_TIMEOUT", 5*time.Second),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 4),
		},
		Corpus: CorpusConfig{
			Path:      envString("CORPUS_PATH", "embeddings/embeddings.gob"),
			ImagesDir: envString("IMAGES_DIR", "images"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Matching: MatchingConfig{
			Metric:    metric,
			Threshold: envFloat("MATCH_THRESHOLD", defaultThreshold),
		},
		Camera: CameraConfig{
			Command:  os.Getenv("CAMERA_COMMAND"),
			InIndex:  envInt("CAMERA_IN", 0),
			OutIndex: envInt("CAMERA_OUT", 1),
		},
		Voice: VoiceConfig{
			Speaker:        envString("SPEAKER", "command"),
			SpeakCommand:   envString("SPEAK_COMMAND", "espeak-ng"),
			PlayerCommand:  envString("PLAYER_COMMAND", "aplay -q -"),
			RecordCommand:  envString("RECORD_COMMAND", "arecord -q -f S16_LE -r 16000 -c 1 -t wav -d {seconds} -"),
			Transcriber:    envString("TRANSCRIBER", "none"),
			SpeechTimeout:  envDuration("SPEECH_TIMEOUT", 30*time.Second),
			ListenTimeout:  envDuration("LISTEN_TIMEOUT", 5*time.Second),
			OpenAIVoice:    envString("OPENAI_VOICE", "alloy"),
			GeminiModel:    envString("GEMINI_MODEL", "gemini-2.5-flash"),
			TranscribeLang: envString("TRANSCRIBE_LANGUAGE", "en"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Dashboard: DashboardConfig{
			AdminPassword:  envString("DASHBOARD_ADMIN_PASSWORD", "admin123"),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		},
		Schedule: schedule,
	}
}
