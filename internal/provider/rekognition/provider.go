package rekognition

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/phiface/internal/audit"
	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/provider"
)

const (
	providerName = "rekognition"
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// Detector implements provider.FaceDetector using AWS Rekognition DetectFaces
type Detector struct {
	config      Config
	auditLogger audit.Logger

	mu  sync.RWMutex
	api RekognitionAPI
}

// DetectorOption defines optional configuration for Detector
type DetectorOption func(*Detector)

// WithAuditLogger sets the audit logger for the detector
func WithAuditLogger(logger audit.Logger) DetectorOption {
	return func(d *Detector) {
		d.auditLogger = logger
	}
}

// WithAPI injects a ready Rekognition client; LoadModels then skips the AWS
// config lookup
func WithAPI(api RekognitionAPI) DetectorOption {
	return func(d *Detector) {
		d.api = api
	}
}

// Ensure Detector implements provider.FaceDetector interface at compile time
var _ provider.FaceDetector = (*Detector)(nil)

// NewDetector creates a Rekognition detector. The AWS client is resolved by
// LoadModels.
func NewDetector(cfg Config, opts ...DetectorOption) *Detector {
	d := &Detector{config: cfg}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// logAudit logs an audit event if an audit logger is configured
// Audit failure does not affect the operation (fire-and-forget)
func (d *Detector) logAudit(ctx context.Context, eventType audit.EventType, success bool, err error, metadata map[string]string) {
	if d.auditLogger == nil {
		return
	}

	event := audit.Event{
		EventType: eventType,
		Provider:  providerName,
		Success:   success,
		Metadata:  metadata,
	}

	if err != nil {
		event.Error = err.Error()
	}

	_ = d.auditLogger.Log(ctx, event)
}

// LoadModels resolves AWS credentials and builds the client. Rekognition
// hosts its models, so this is the only warm-up step.
func (d *Detector) LoadModels(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.api != nil {
		d.logAudit(ctx, audit.EventModelsLoaded, true, nil, map[string]string{"region": d.config.Region})
		return nil
	}

	api, err := NewAPI(ctx, d.config)
	if err != nil {
		d.logAudit(ctx, audit.EventModelsLoaded, false, err, nil)
		return err
	}
	d.api = api
	d.logAudit(ctx, audit.EventModelsLoaded, true, nil, map[string]string{"region": d.config.Region})
	return nil
}

func (d *Detector) client() (RekognitionAPI, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.api == nil {
		return nil, provider.ErrModelsNotLoaded
	}
	return d.api, nil
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(img *imagesrc.Image) error {
	if img == nil || len(img.Data) == 0 {
		return ErrInvalidImage
	}
	if len(img.Data) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(img.Data), minImageSize)
	}
	if len(img.Data) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(img.Data), maxImageSize)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: unknown image dimensions", ErrInvalidImage)
	}
	return nil
}

func (d *Detector) detect(ctx context.Context, img *imagesrc.Image, attr types.Attribute, minConfidence float64) ([]types.FaceDetail, error) {
	api, err := d.client()
	if err != nil {
		return nil, err
	}
	if err := validateImage(img); err != nil {
		return nil, err
	}

	output, err := api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: img.Data},
		Attributes: []types.Attribute{attr},
	})
	if err != nil {
		return nil, mapAPIError(err)
	}

	// Rekognition reports confidence in percent
	threshold := float32(minConfidence * 100)
	faces := make([]types.FaceDetail, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil {
			continue
		}
		if detail.Confidence != nil && *detail.Confidence < threshold {
			continue
		}
		faces = append(faces, detail)
	}
	return faces, nil
}

// FindAllFaces runs DetectFaces with default attributes
func (d *Detector) FindAllFaces(ctx context.Context, img *imagesrc.Image, opts provider.Options) ([]provider.BoundingBox, error) {
	faces, err := d.detect(ctx, img, types.AttributeDefault, opts.MinConfidence)
	if err != nil {
		d.logAudit(ctx, audit.EventFacesFound, false, err, nil)
		return nil, fmt.Errorf("find all faces: %w", err)
	}

	boxes := make([]provider.BoundingBox, 0, len(faces))
	for _, f := range faces {
		boxes = append(boxes, toPixelBox(f.BoundingBox, img.Width, img.Height))
	}

	d.logAudit(ctx, audit.EventFacesFound, true, nil, map[string]string{
		"faces_count": strconv.Itoa(len(boxes)),
		"image_size":  strconv.Itoa(len(img.Data)),
	})
	return boxes, nil
}

// FindSingleFaceWithLandmarks runs DetectFaces with all attributes and maps the
// most confident face onto the 68-point scheme. It returns nil when no face
// has the landmarks the scheme needs.
func (d *Detector) FindSingleFaceWithLandmarks(ctx context.Context, img *imagesrc.Image, opts provider.Options) (*provider.LandmarkedFace, error) {
	faces, err := d.detect(ctx, img, types.AttributeAll, opts.MinConfidence)
	if err != nil {
		d.logAudit(ctx, audit.EventLandmarksDetected, false, err, nil)
		return nil, fmt.Errorf("find landmarks: %w", err)
	}

	var best *types.FaceDetail
	for i := range faces {
		if best == nil || confidence(faces[i]) > confidence(*best) {
			best = &faces[i]
		}
	}
	if best == nil {
		d.logAudit(ctx, audit.EventLandmarksDetected, true, nil, map[string]string{"found": "false"})
		return nil, nil
	}

	lm, ok := mapLandmarks(best.Landmarks, img.Width, img.Height)
	if !ok {
		d.logAudit(ctx, audit.EventLandmarksDetected, true, nil, map[string]string{
			"found":  "false",
			"reason": "missing_anchor",
		})
		return nil, nil
	}

	face := &provider.LandmarkedFace{
		Box:       toPixelBox(best.BoundingBox, img.Width, img.Height),
		Landmarks: lm,
		Score:     float64(confidence(*best)) / 100,
	}
	d.logAudit(ctx, audit.EventLandmarksDetected, true, nil, map[string]string{
		"found":     "true",
		"landmarks": strconv.Itoa(len(best.Landmarks)),
	})
	return face, nil
}

func confidence(f types.FaceDetail) float32 {
	if f.Confidence == nil {
		return 0
	}
	return *f.Confidence
}

func toPixelBox(b *types.BoundingBox, width, height int) provider.BoundingBox {
	if b == nil {
		return provider.BoundingBox{}
	}
	return provider.BoundingBox{
		X:      float64(deref(b.Left)) * float64(width),
		Y:      float64(deref(b.Top)) * float64(height),
		Width:  float64(deref(b.Width)) * float64(width),
		Height: float64(deref(b.Height)) * float64(height),
	}
}

func deref(v *float32) float32 {
	if v == nil {
		return 0
	}
	return *v
}

// requiredLandmarks are the named points the 68-point mapping cannot do without
var requiredLandmarks = []types.LandmarkType{
	types.LandmarkTypeUpperJawlineLeft,
	types.LandmarkTypeMidJawlineLeft,
	types.LandmarkTypeChinBottom,
	types.LandmarkTypeMidJawlineRight,
	types.LandmarkTypeUpperJawlineRight,
	types.LandmarkTypeLeftEyeBrowRight,
	types.LandmarkTypeRightEyeBrowLeft,
	types.LandmarkTypeNose,
	types.LandmarkTypeNoseLeft,
	types.LandmarkTypeNoseRight,
	types.LandmarkTypeMouthUp,
	types.LandmarkTypeMouthDown,
}

// mapLandmarks places Rekognition's named landmarks onto the 68-point scheme.
// The jaw contour is interpolated through the five jawline anchors, the
// nasion is the midpoint of the inner eyebrow ends and the nose base is the
// nostril midpoint. Points with no Rekognition counterpart are interpolated
// from their neighbours.
func mapLandmarks(src []types.Landmark, width, height int) (provider.Landmarks68, bool) {
	var lm provider.Landmarks68

	named := make(map[types.LandmarkType]domain.Point, len(src))
	for _, l := range src {
		if l.X == nil || l.Y == nil {
			continue
		}
		named[l.Type] = domain.Point{
			X: float64(*l.X) * float64(width),
			Y: float64(*l.Y) * float64(height),
		}
	}
	for _, t := range requiredLandmarks {
		if _, ok := named[t]; !ok {
			return lm, false
		}
	}

	get := func(t types.LandmarkType, fallback domain.Point) domain.Point {
		if p, ok := named[t]; ok {
			return p
		}
		return fallback
	}
	fill := func(from, to int) {
		for i := from + 1; i < to; i++ {
			lm[i] = domain.Lerp(lm[from], lm[to], float64(i-from)/float64(to-from))
		}
	}

	// jaw 0..16
	lm[0] = named[types.LandmarkTypeUpperJawlineLeft]
	lm[4] = named[types.LandmarkTypeMidJawlineLeft]
	lm[8] = named[types.LandmarkTypeChinBottom]
	lm[12] = named[types.LandmarkTypeMidJawlineRight]
	lm[16] = named[types.LandmarkTypeUpperJawlineRight]
	fill(0, 4)
	fill(4, 8)
	fill(8, 12)
	fill(12, 16)

	// eyebrows 17..26
	lm[21] = named[types.LandmarkTypeLeftEyeBrowRight]
	lm[22] = named[types.LandmarkTypeRightEyeBrowLeft]
	lm[17] = get(types.LandmarkTypeLeftEyeBrowLeft, lm[21])
	lm[19] = get(types.LandmarkTypeLeftEyeBrowUp, domain.Midpoint(lm[17], lm[21]))
	lm[26] = get(types.LandmarkTypeRightEyeBrowRight, lm[22])
	lm[24] = get(types.LandmarkTypeRightEyeBrowUp, domain.Midpoint(lm[22], lm[26]))
	fill(17, 19)
	fill(19, 21)
	fill(22, 24)
	fill(24, 26)

	// nose 27..35
	lm[27] = domain.Midpoint(lm[21], lm[22])
	lm[30] = named[types.LandmarkTypeNose]
	fill(27, 30)
	lm[31] = named[types.LandmarkTypeNoseLeft]
	lm[35] = named[types.LandmarkTypeNoseRight]
	lm[33] = domain.Midpoint(lm[31], lm[35])
	lm[32] = domain.Midpoint(lm[31], lm[33])
	lm[34] = domain.Midpoint(lm[33], lm[35])

	// eyes 36..47
	leftEye := get(types.LandmarkTypeEyeLeft, domain.Lerp(lm[27], lm[0], 0.5))
	rightEye := get(types.LandmarkTypeEyeRight, domain.Lerp(lm[27], lm[16], 0.5))
	lm[36] = get(types.LandmarkTypeLeftEyeLeft, leftEye)
	lm[39] = get(types.LandmarkTypeLeftEyeRight, leftEye)
	lm[37] = get(types.LandmarkTypeLeftEyeUp, leftEye)
	lm[38] = lm[37]
	lm[40] = get(types.LandmarkTypeLeftEyeDown, leftEye)
	lm[41] = lm[40]
	lm[42] = get(types.LandmarkTypeRightEyeLeft, rightEye)
	lm[45] = get(types.LandmarkTypeRightEyeRight, rightEye)
	lm[43] = get(types.LandmarkTypeRightEyeUp, rightEye)
	lm[44] = lm[43]
	lm[46] = get(types.LandmarkTypeRightEyeDown, rightEye)
	lm[47] = lm[46]

	// mouth 48..67
	lm[51] = named[types.LandmarkTypeMouthUp]
	lm[57] = named[types.LandmarkTypeMouthDown]
	lm[48] = get(types.LandmarkTypeMouthLeft, domain.Midpoint(lm[4], lm[51]))
	lm[54] = get(types.LandmarkTypeMouthRight, domain.Midpoint(lm[12], lm[51]))
	fill(48, 51)
	fill(51, 54)
	fill(54, 57)
	for i := 58; i <= 59; i++ {
		lm[i] = domain.Lerp(lm[57], lm[48], float64(i-57)/3)
	}
	lm[60] = lm[48]
	lm[64] = lm[54]
	mid := domain.Midpoint(lm[51], lm[57])
	lm[62] = mid
	lm[66] = mid
	lm[61] = domain.Midpoint(lm[60], lm[62])
	lm[63] = domain.Midpoint(lm[62], lm[64])
	lm[65] = domain.Midpoint(lm[64], lm[66])
	lm[67] = domain.Midpoint(lm[66], lm[60])

	return lm, true
}
