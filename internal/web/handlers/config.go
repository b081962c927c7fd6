package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
)

// ConfigHandler exposes the non-secret configuration the dashboard displays
type ConfigHandler struct {
	config   *config.Config
	schedule *attendance.Schedule
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, schedule *attendance.Schedule) *ConfigHandler {
	return &ConfigHandler{
		config:   cfg,
		schedule: schedule,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Matching  MatchingInfo   `json:"matching"`
	Schedule  ScheduleInfo   `json:"schedule"`
	Providers []ProviderInfo `json:"providers"`
	Cameras   CameraInfo     `json:"cameras"`
}

// MatchingInfo is the face matching rule
type MatchingInfo struct {
	Metric    string  `json:"metric"`
	Threshold float64 `json:"threshold"`
}

// ScheduleInfo is the attendance clock rule set
type ScheduleInfo struct {
	OnTimeUntil        string   `json:"on_time_until"`
	BreakWindows       []string `json:"break_windows"`
	PermissionWindows  []string `json:"permission_windows"`
	CorrectionFrom     string   `json:"correction_from"`
	CorrectionCooldown string   `json:"correction_cooldown"`
}

// ProviderInfo tells whether a voice backend is configured
type ProviderInfo struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Available bool   `json:"available"`
	Selected  bool   `json:"selected"`
}

// CameraInfo holds the device indexes of both recognition processes
type CameraInfo struct {
	In  int `json:"in"`
	Out int `json:"out"`
}

func windowStrings(windows []attendance.Window) []string {
	out := make([]string, 0, len(windows))
	for _, w := range windows {
		out = append(out, w.String())
	}
	return out
}

// Get returns the active configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	voice := h.config.Voice
	providers := []ProviderInfo{
		{Name: "command", Kind: "speaker", Available: voice.SpeakCommand != "", Selected: voice.Speaker == "command"},
		{Name: "openai", Kind: "speaker", Available: h.config.OpenAI.Token != "", Selected: voice.Speaker == "openai"},
		{Name: "openai", Kind: "transcriber", Available: h.config.OpenAI.Token != "", Selected: voice.Transcriber == "openai"},
		{Name: "gemini", Kind: "transcriber", Available: h.config.Gemini.APIKey != "", Selected: voice.Transcriber == "gemini"},
	}

	respondJSON(w, http.StatusOK, ConfigResponse{
		Matching: MatchingInfo{
			Metric:    h.config.Matching.Metric,
			Threshold: h.config.Matching.Threshold,
		},
		Schedule: ScheduleInfo{
			OnTimeUntil:        h.schedule.OnTimeUntil.String(),
			BreakWindows:       windowStrings(h.schedule.BreakWindows),
			PermissionWindows:  windowStrings(h.schedule.PermissionWindows),
			CorrectionFrom:     h.schedule.CorrectionFrom.String(),
			CorrectionCooldown: h.schedule.CorrectionCooldown.String(),
		},
		Providers: providers,
		Cameras:   CameraInfo{In: h.config.Camera.InIndex, Out: h.config.Camera.OutIndex},
	})
}
