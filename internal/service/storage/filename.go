package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout prefixes every snapshot filename.
const TimestampLayout = "2006-01-02_15-04_05.000"

// SnapshotName builds "<ts>_<camera>_<Emotion>_..._.jpg".
// Underscores in the camera name are replaced so the name can be split back.
func SnapshotName(ts time.Time, camera string, emotions []string) string {
	var b strings.Builder
	b.WriteString(ts.Format(TimestampLayout))
	b.WriteString("_")
	b.WriteString(sanitize(camera))
	b.WriteString("_")
	for _, e := range emotions {
		b.WriteString(sanitize(e))
		b.WriteString("_")
	}
	b.WriteString(".jpg")
	return b.String()
}

// ParsedName is the metadata recovered from a snapshot filename.
type ParsedName struct {
	Timestamp time.Time
	Camera    string
	Emotions  []string
}

// ParseSnapshotName reverses SnapshotName.
func ParseSnapshotName(name string) (ParsedName, error) {
	var parsed ParsedName

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return parsed, fmt.Errorf("invalid snapshot filename %q", name)
	}

	ts, err := time.ParseInLocation(TimestampLayout, strings.Join(parts[:3], "_"), time.Local)
	if err != nil {
		return parsed, fmt.Errorf("invalid timestamp in %q: %w", name, err)
	}

	parsed.Timestamp = ts
	parsed.Camera = parts[3]
	for _, p := range parts[4:] {
		if p != "" {
			parsed.Emotions = append(parsed.Emotions, p)
		}
	}
	return parsed, nil
}

func sanitize(s string) string {
	return strings.NewReplacer("_", "-", "/", "-", string(filepath.Separator), "-").Replace(s)
}
