package faceapi

// LoadModelsRequest for POST /models/load
type LoadModelsRequest struct {
	ModelURL string `json:"model_url"`
}

// LoadModelsResponse from POST /models/load
type LoadModelsResponse struct {
	Loaded bool     `json:"loaded"`
	Models []string `json:"models"`
	Error  string   `json:"error,omitempty"`
}

// DetectRequest is the body of both /detect and /landmarks
type DetectRequest struct {
	Img           string  `json:"img"` // base64 encoded image
	MinConfidence float64 `json:"min_confidence"`
	InputSize     int     `json:"input_size"`
}

// DetectResponse from POST /detect
type DetectResponse struct {
	Faces []DetectedFace `json:"faces"`
}

type DetectedFace struct {
	Box   Box     `json:"box"`
	Score float64 `json:"score"`
}

type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LandmarksResponse from POST /landmarks; Face is null when no face settled
type LandmarksResponse struct {
	Face *LandmarkFace `json:"face"`
}

type LandmarkFace struct {
	Box       Box          `json:"box"`
	Score     float64      `json:"score"`
	Landmarks [][2]float64 `json:"landmarks"` // 68 [x, y] pairs in pixels
}
