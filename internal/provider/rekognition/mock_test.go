package rekognition

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// mockRekognitionAPI is a mock implementation of RekognitionAPI interface for testing
type mockRekognitionAPI struct {
	detectFacesFunc func(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

func (m *mockRekognitionAPI) DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error) {
	if m.detectFacesFunc != nil {
		return m.detectFacesFunc(ctx, params, optFns...)
	}
	return &rekognition.DetectFacesOutput{}, nil
}

func returning(details ...types.FaceDetail) *mockRekognitionAPI {
	return &mockRekognitionAPI{
		detectFacesFunc: func(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error) {
			return &rekognition.DetectFacesOutput{FaceDetails: details}, nil
		},
	}
}

func landmark(t types.LandmarkType, x, y float32) types.Landmark {
	return types.Landmark{Type: t, X: aws.Float32(x), Y: aws.Float32(y)}
}

// frontalFace is a face on a unit canvas whose anchors land on round pixel
// values for a 400x400 image.
func frontalFace(confidence float32) types.FaceDetail {
	return types.FaceDetail{
		BoundingBox: &types.BoundingBox{
			Left:   aws.Float32(0.25),
			Top:    aws.Float32(0.25),
			Width:  aws.Float32(0.5),
			Height: aws.Float32(0.6),
		},
		Confidence: aws.Float32(confidence),
		Landmarks: []types.Landmark{
			landmark(types.LandmarkTypeUpperJawlineLeft, 0.25, 0.45),
			landmark(types.LandmarkTypeMidJawlineLeft, 0.30, 0.65),
			landmark(types.LandmarkTypeChinBottom, 0.50, 0.80),
			landmark(types.LandmarkTypeMidJawlineRight, 0.70, 0.65),
			landmark(types.LandmarkTypeUpperJawlineRight, 0.75, 0.45),
			landmark(types.LandmarkTypeLeftEyeBrowRight, 0.45, 0.275),
			landmark(types.LandmarkTypeRightEyeBrowLeft, 0.55, 0.275),
			landmark(types.LandmarkTypeNose, 0.50, 0.50),
			landmark(types.LandmarkTypeNoseLeft, 0.45, 0.52),
			landmark(types.LandmarkTypeNoseRight, 0.55, 0.52),
			landmark(types.LandmarkTypeMouthUp, 0.50, 0.60),
			landmark(types.LandmarkTypeMouthDown, 0.50, 0.67),
			landmark(types.LandmarkTypeMouthLeft, 0.42, 0.63),
			landmark(types.LandmarkTypeMouthRight, 0.58, 0.63),
			landmark(types.LandmarkTypeEyeLeft, 0.40, 0.35),
			landmark(types.LandmarkTypeEyeRight, 0.60, 0.35),
		},
	}
}
