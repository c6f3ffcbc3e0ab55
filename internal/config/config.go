package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port                  int    `validate:"min=1,max=65535"`
	Password              string `validate:"required"`
	DBPath                string `validate:"required"`
	ImageDirectory        string `validate:"required"`
	LogDirectory          string `validate:"required"`
	LogLevel              string `validate:"oneof=debug info warning error"`
	SnapshotBufferLimit   int    `validate:"min=1"`
	FlushInterval         int    `validate:"min=1"` // seconds
	MaxImageDirectorySize int64  // GB, 0 disables the cap

	CamerasPort    int               `validate:"min=1,max=65535"`
	CameraNames    map[string]string // source IP -> camera name
	CameraRotation int               `validate:"oneof=0 90 180 270"`
	CameraMirrored bool

	Detector         string `validate:"oneof=cascade yunet"`
	CascadePath      string `validate:"required_if=Detector cascade"`
	YuNetPath        string `validate:"required_if=Detector yunet"`
	DetectionTimeout time.Duration

	ClassifierEngine    string  `validate:"oneof=tflite opencv"`
	ClassifierModelPath string  `validate:"required"`
	ClassifierThreads   int     `validate:"min=1"`
	PatchScale          float64 `validate:"gt=0"`

	Presentation  string `validate:"oneof=live still"`
	LabelSet      string `validate:"oneof=canonical alternate"`
	OverlayWidth  int    `validate:"min=1"`
	OverlayHeight int    `validate:"min=1"`

	MQTTBroker string
	MQTTTopic  string `validate:"required_with=MQTTBroker"`
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnvAsInt("PORT", 8080),
		Password:              getEnv("PASSWORD", "emotioncam"),
		DBPath:                getEnv("DB_PATH", filepath.Join(".", "data", "emotioncam.db")),
		ImageDirectory:        getEnv("IMAGE_DIR", filepath.Join(".", "images")),
		LogDirectory:          getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		SnapshotBufferLimit:   getEnvAsInt("SNAPSHOT_BUFFER_LIMIT", 7),
		FlushInterval:         getEnvAsInt("FLUSH_INTERVAL", 30),
		MaxImageDirectorySize: getEnvAsInt64("MAX_IMAGE_DIRECTORY_SIZE", 4),

		CamerasPort:    getEnvAsInt("CAMERAS_PORT", 12345),
		CameraNames:    parseCameraNames(getEnv("CAMERA_NAMES", "")),
		CameraRotation: getEnvAsInt("CAMERA_ROTATION", 0),
		CameraMirrored: getEnvAsBool("CAMERA_MIRRORED", false),

		Detector:         getEnv("DETECTOR", "cascade"),
		CascadePath:      getEnv("CASCADE_PATH", filepath.Join(".", "models", "haarcascade_frontalface_default.xml")),
		YuNetPath:        getEnv("YUNET_PATH", filepath.Join(".", "models", "face_detection_yunet_2023mar.onnx")),
		DetectionTimeout: time.Duration(getEnvAsInt("DETECTION_TIMEOUT", 2000)) * time.Millisecond,

		ClassifierEngine:    getEnv("CLASSIFIER_ENGINE", "tflite"),
		ClassifierModelPath: getEnv("CLASSIFIER_MODEL", filepath.Join(".", "models", "emotion_cnn.tflite")),
		ClassifierThreads:   getEnvAsInt("CLASSIFIER_THREADS", 2),
		PatchScale:          getEnvAsFloat("PATCH_SCALE", 1.0),

		Presentation:  getEnv("PRESENTATION", "live"),
		LabelSet:      getEnv("LABEL_SET", "canonical"),
		OverlayWidth:  getEnvAsInt("OVERLAY_WIDTH", 1280),
		OverlayHeight: getEnvAsInt("OVERLAY_HEIGHT", 720),

		MQTTBroker: getEnv("MQTT_BROKER", ""),
		MQTTTopic:  getEnv("MQTT_TOPIC", "emotioncam"),
	}
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ConfidenceDecimals is 0 for the live overlay and 2 for still images.
func (c *Config) ConfidenceDecimals() int {
	if c.Presentation == "still" {
		return 2
	}
	return 0
}

// CameraName resolves the configured name for a source IP.
func (c *Config) CameraName(ip string) string {
	if name, ok := c.CameraNames[ip]; ok {
		return name
	}
	return "unknown_" + ip
}

// parseCameraNames reads "ip=name,ip=name".
func parseCameraNames(raw string) map[string]string {
	names := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		ip, name, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || ip == "" || name == "" {
			continue
		}
		names[strings.TrimSpace(ip)] = strings.TrimSpace(name)
	}
	return names
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
