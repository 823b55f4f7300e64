package chat

// Gemini / Veo model IDs used by CineGen
//
// | Step        | API Model ID                    | Notes                                   |
// |-------------|---------------------------------|-----------------------------------------|
// | Enhancement | gemini-2.5-flash                | Structured JSON output                  |
// | Image       | gemini-3-pro-image-preview      | 16:9, 2K inline image                   |
// | Video       | veo-3.1-fast-generate-preview   | Long-running operation, 1080p, 16:9     |
// | Validation  | gemini-2.5-flash-lite           | Cheapest call that proves a key works   |
const (
	// ModelGemini25Flash is stable, balanced performance. Used for enhancement.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini25FlashLite is for high-throughput, lowest cost.
	ModelGemini25FlashLite = "gemini-2.5-flash-lite"

	// ModelGemini3ProImage is for advanced image generation.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelVeo31FastPreview generates short videos from text or text plus an image.
	ModelVeo31FastPreview = "veo-3.1-fast-generate-preview"
)

// ModelSet names the model used for each generation step.
type ModelSet struct {
	Enhance string
	Image   string
	Video   string
}

// DefaultModels returns the models CineGen uses when nothing is overridden.
func DefaultModels() ModelSet {
	return ModelSet{
		Enhance: ModelGemini25Flash,
		Image:   ModelGemini3ProImage,
		Video:   ModelVeo31FastPreview,
	}
}

// Merge returns m with every non-empty field of o applied on top.
func (m ModelSet) Merge(o ModelSet) ModelSet {
	if o.Enhance != "" {
		m.Enhance = o.Enhance
	}
	if o.Image != "" {
		m.Image = o.Image
	}
	if o.Video != "" {
		m.Video = o.Video
	}
	return m
}
