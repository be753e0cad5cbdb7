package vision

// Likelihood is the coarse ordinal classification the Vision API returns
// instead of a continuous probability.
type Likelihood string

const (
	LikelihoodUnknown      Likelihood = "UNKNOWN"
	LikelihoodVeryUnlikely Likelihood = "VERY_UNLIKELY"
	LikelihoodUnlikely     Likelihood = "UNLIKELY"
	LikelihoodPossible     Likelihood = "POSSIBLE"
	LikelihoodLikely       Likelihood = "LIKELY"
	LikelihoodVeryLikely   Likelihood = "VERY_LIKELY"
)

// Flagged reports whether the likelihood is LIKELY or stronger
func (l Likelihood) Flagged() bool {
	return l == LikelihoodLikely || l == LikelihoodVeryLikely
}

// Feature types requested per image.
const (
	featureFaceDetection       = "FACE_DETECTION"
	featureLabelDetection      = "LABEL_DETECTION"
	featureSafeSearchDetection = "SAFE_SEARCH_DETECTION"
)

// annotateRequest is the images:annotate request body
type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"` // base64-encoded bytes
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

// annotateResponse is the images:annotate response body
type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
}

type imageResponse struct {
	FaceAnnotations      []FaceAnnotation      `json:"faceAnnotations"`
	LabelAnnotations     []LabelAnnotation     `json:"labelAnnotations"`
	SafeSearchAnnotation *SafeSearchAnnotation `json:"safeSearchAnnotation"`
	Error                *apiStatus            `json:"error"`
}

// apiStatus is the google.rpc.Status error embedded in a per-image response
type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// FaceAnnotation holds the emotion likelihoods for one detected face
type FaceAnnotation struct {
	JoyLikelihood       Likelihood `json:"joyLikelihood"`
	SorrowLikelihood    Likelihood `json:"sorrowLikelihood"`
	AngerLikelihood     Likelihood `json:"angerLikelihood"`
	SurpriseLikelihood  Likelihood `json:"surpriseLikelihood"`
	DetectionConfidence float64    `json:"detectionConfidence"`
}

// LabelAnnotation is one detected scene or object label
type LabelAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// SafeSearchAnnotation classifies the image along content axes
type SafeSearchAnnotation struct {
	Adult    Likelihood `json:"adult"`
	Violence Likelihood `json:"violence"`
	Racy     Likelihood `json:"racy"`
}

// Annotation aggregates everything the pipeline asks the API about a
// single image
type Annotation struct {
	Faces      []FaceAnnotation
	Labels     []LabelAnnotation
	SafeSearch SafeSearchAnnotation
}
