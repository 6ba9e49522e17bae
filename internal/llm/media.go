package llm

import (
	"context"
	"fmt"
	"time"
)

// ImageRequest describes an image to generate or edit
type ImageRequest struct {
	Prompt      string
	AspectRatio string
	// Source is an optional base64 image to edit
	Source   string
	MIMEType string
}

// Image is base64-encoded image data
type Image struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// ImageGenerator creates images from text
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*Image, error)
}

// VideoRequest describes a video to generate
type VideoRequest struct {
	Prompt      string
	AspectRatio string
}

// VideoOperation is a long-running video generation job
type VideoOperation interface {
	// Poll refreshes the operation state
	Poll(ctx context.Context) error
	Done() bool
	// URI is the download location once Done reports true
	URI() string
	Err() error
}

// VideoGenerator starts video generation jobs
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req VideoRequest) (VideoOperation, error)
}

// WaitForVideo polls op every interval until it completes or ctx ends
func WaitForVideo(ctx context.Context, op VideoOperation, interval time.Duration) (string, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for !op.Done() {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		if err := op.Poll(ctx); err != nil {
			return "", fmt.Errorf("failed to poll video operation: %w", err)
		}
	}

	if err := op.Err(); err != nil {
		return "", fmt.Errorf("video generation failed: %w", err)
	}
	if op.URI() == "" {
		return "", ErrEmptyResponse
	}
	return op.URI(), nil
}

// Audio is base64-encoded audio data
type Audio struct {
	Data       string `json:"data"`
	MIMEType   string `json:"mimeType"`
	SampleRate int    `json:"sampleRate,omitempty"`
}

// SpeechSynthesizer turns text into audio spoken by voice
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*Audio, error)
}

// LiveSession is an open bidirectional audio session
type LiveSession interface {
	SendAudio(ctx context.Context, pcm []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// LiveConnector opens live audio sessions
type LiveConnector interface {
	Connect(ctx context.Context, cfg BehaviorConfig) (LiveSession, error)
}
