// Package imagegen creates featured images with Amazon Titan on AWS Bedrock.
package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/google/uuid"

	"github.com/raphaelgruber/contentmill/internal/config"
	"github.com/raphaelgruber/contentmill/internal/metrics"
	"github.com/raphaelgruber/contentmill/internal/models"
)

const (
	imageWidth    = 1280
	imageHeight   = 768
	maxPromptRune = 512
)

// Image is a generated image stored on disk.
type Image struct {
	Location     string
	CostEstimate float64
}

// invoker is the subset of the Bedrock runtime client used here.
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock generates images with a Titan image model.
type Bedrock struct {
	client  invoker
	modelID string
	dir     string
	cost    float64
	metrics *metrics.Collector
}

// NewBedrock loads AWS credentials from the default chain.
func NewBedrock(ctx context.Context, cfg config.Config, collector *metrics.Collector) (*Bedrock, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newBedrock(bedrockruntime.NewFromConfig(awsCfg), cfg.ImageModelID, cfg.ImageDir, cfg.ImageCost, collector), nil
}

func newBedrock(client invoker, modelID, dir string, cost float64, collector *metrics.Collector) *Bedrock {
	return &Bedrock{client: client, modelID: modelID, dir: dir, cost: cost, metrics: collector}
}

type titanRequest struct {
	TaskType          string            `json:"taskType"`
	TextToImageParams titanTextParams   `json:"textToImageParams"`
	GenerationConfig  titanImageOptions `json:"imageGenerationConfig"`
}

type titanTextParams struct {
	Text string `json:"text"`
}

type titanImageOptions struct {
	NumberOfImages int     `json:"numberOfImages"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	CfgScale       float64 `json:"cfgScale"`
}

type titanResponse struct {
	Images []string `json:"images"`
	Error  *string  `json:"error"`
}

// Generate renders prompt to a PNG named after name and returns its path.
func (b *Bedrock) Generate(ctx context.Context, name, prompt string) (Image, error) {
	body, err := json.Marshal(titanRequest{
		TaskType:          "TEXT_IMAGE",
		TextToImageParams: titanTextParams{Text: clip(prompt, maxPromptRune)},
		GenerationConfig: titanImageOptions{
			NumberOfImages: 1,
			Width:          imageWidth,
			Height:         imageHeight,
			CfgScale:       8,
		},
	})
	if err != nil {
		return Image{}, fmt.Errorf("marshal image request: %w", err)
	}

	start := time.Now()
	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		b.recordFailure()
		return Image{}, fmt.Errorf("invoke image model: %w", err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		b.recordFailure()
		return Image{}, fmt.Errorf("decode image response: %w", err)
	}
	if resp.Error != nil && *resp.Error != "" {
		b.recordFailure()
		return Image{}, fmt.Errorf("image model: %s", *resp.Error)
	}
	if len(resp.Images) == 0 {
		b.recordFailure()
		return Image{}, fmt.Errorf("image model returned no images")
	}

	png, err := base64.StdEncoding.DecodeString(resp.Images[0])
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return Image{}, fmt.Errorf("create image dir: %w", err)
	}
	slug := models.Slugify(name)
	if slug == "" {
		slug = "image"
	}
	path := filepath.Join(b.dir, fmt.Sprintf("%s-%s.png", slug, uuid.NewString()[:8]))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return Image{}, fmt.Errorf("write image: %w", err)
	}

	if b.metrics != nil {
		b.metrics.RecordCost(metrics.OpImageGenerate, time.Since(start), b.cost)
	}
	slog.Info("featured image generated", "path", path, "model", b.modelID)

	return Image{Location: path, CostEstimate: b.cost}, nil
}

func (b *Bedrock) recordFailure() {
	if b.metrics != nil {
		b.metrics.RecordFailure(metrics.OpImageGenerate)
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
