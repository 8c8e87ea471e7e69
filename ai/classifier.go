package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/Vasanth69-code/civiczen/models"
)

// Request is what the classification service sees: the free-text description,
// the location, and optionally the report photo.
type Request struct {
	Description string
	Address     string
	Location    models.GeoPoint
	Image       []byte
	ImageMIME   string
}

// Classification is the structured result merged into an already-created
// issue through the issue container's update operation.
type Classification struct {
	Category   string               `json:"issueType"`
	Department string               `json:"department"`
	Priority   models.IssuePriority `json:"priority"`
}

// Classifier categorizes and routes a report. Implementations are black
// boxes with no latency bound; failures are non-fatal and leave the issue
// in "Pending Assignment".
type Classifier interface {
	Classify(ctx context.Context, req Request) (Classification, error)
}

const classifyPrompt = `You are an AI assistant that categorizes and routes civic issue reports to the relevant department.

Possible issue types: Pothole, Garbage Overflow, Streetlight Outage, Graffiti, Damaged Signage, Electrical Line Damage, Sewage Overflow, Tree Damage, Other.

Based on the description (and photo, if given), select the most appropriate issue type, the department that should handle it, and a priority (Low, Medium, High) based on public safety and urgency.

Description: %s
Location: %s (%.5f, %.5f)

Respond with JSON only: {"issueType": "...", "department": "...", "priority": "..."}`

// Gemini classifies reports with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed classifier.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Classify(ctx context.Context, req Request) (Classification, error) {
	prompt := fmt.Sprintf(classifyPrompt, req.Description, req.Address,
		req.Location.Latitude, req.Location.Longitude)

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(req.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image, req.ImageMIME))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents,
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
	if err != nil {
		return Classification{}, fmt.Errorf("classify request failed: %w", err)
	}

	var classification Classification
	if err := json.Unmarshal([]byte(result.Text()), &classification); err != nil {
		return Classification{}, fmt.Errorf("unexpected classifier response: %w", err)
	}
	return Normalize(classification), nil
}
