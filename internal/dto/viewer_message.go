package dto

const (
	MessageFrame   = "frame"
	MessageOverlay = "overlay"
)

// ViewerMessage is pushed to every connected viewer.
// Frame messages carry a base64 JPEG; overlay messages carry draw commands.
type ViewerMessage struct {
	Type   string `json:"type"`
	Camera string `json:"camera"`
	Image  string `json:"image,omitempty"`
	// orientation of Image; the viewer rotates and flips it to display space
	Rotation int         `json:"rotation,omitempty"`
	Mirrored bool        `json:"mirrored,omitempty"`
	Overlay  interface{} `json:"overlay,omitempty"`
}

// ResultMessage is published to the broker for each processed frame.
type ResultMessage struct {
	Camera     string      `json:"camera"`
	FrameID    string      `json:"frameId"`
	CapturedAt string      `json:"capturedAt"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	Results    interface{} `json:"results"`
}
