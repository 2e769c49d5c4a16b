package remover

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"

	"nobg/internal/adapters/file"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

const DefaultFALEndpoint = "https://fal.run/fal-ai/imageutils/rembg"

// FAL removes backgrounds through the hosted rembg model on FAL.
type FAL struct {
	falAPIKey string
	endpoint  string
	client    *http.Client
}

func NewFAL(endpoint, apiKey string) (*FAL, error) {
	if apiKey == "" {
		return nil, errors.New("missing FAL API key")
	}

	if endpoint == "" {
		endpoint = DefaultFALEndpoint
	}

	return &FAL{
		falAPIKey: apiKey,
		endpoint:  endpoint,
		client:    &http.Client{},
	}, nil
}

type removeRequest struct {
	ImageURL   string `json:"image_url"`
	CropToBBox bool   `json:"crop_to_bbox"`
}

type removeResponse struct {
	Image struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
	} `json:"image"`
}

func (f *FAL) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	encoded := new(bytes.Buffer)
	if err := imaging.Encode(encoded, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("error encoding FAL input: %w", err)
	}

	falRequest := removeRequest{
		ImageURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(encoded.Bytes()),
	}

	payloadBuf := new(bytes.Buffer)
	err := json.NewEncoder(payloadBuf).Encode(falRequest)
	if err != nil {
		return nil, fmt.Errorf("error encoding FAL request: %w", err)
	}

	body, err := f.postFALRequest(ctx, payloadBuf)
	if err != nil {
		return nil, fmt.Errorf("FAL request failed: %w", err)
	}

	var result removeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("error unmarshalling FAL response: %w", err)
	}

	if result.Image.URL == "" {
		return nil, errors.New("no image returned from FAL response")
	}

	log.Debug().
		Str("contentType", result.Image.ContentType).
		Int("width", result.Image.Width).
		Int("height", result.Image.Height).
		Msg("FAL response")

	data, err := fetchResult(ctx, result.Image.URL)
	if err != nil {
		return nil, err
	}

	out, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error decoding FAL image: %w", err)
	}

	return out, nil
}

func (f *FAL) postFALRequest(ctx context.Context, payloadBuf *bytes.Buffer) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, payloadBuf)
	if err != nil {
		log.Error().Err(err).Msg("error creating POST request for FAL")
		return nil, err
	}

	req.Header.Add("Authorization", "Key "+f.falAPIKey)
	req.Header.Add("Content-Type", "application/json")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing FAL request: %w", err)
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading FAL response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		log.Error().Int("status", res.StatusCode).Bytes("body", body).Msg("FAL returned error status")
		return nil, fmt.Errorf("unexpected FAL status code: %d", res.StatusCode)
	}

	return body, nil
}

// fetchResult resolves the image FAL points at, which is either an inline data URI or a CDN URL.
func fetchResult(ctx context.Context, imageURL string) ([]byte, error) {
	if !strings.HasPrefix(imageURL, "data:") {
		return file.DownloadFile(ctx, imageURL)
	}

	meta, payload, ok := strings.Cut(strings.TrimPrefix(imageURL, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI in FAL response")
	}

	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("error decoding FAL data URI: %w", err)
		}
		return data, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("error decoding FAL data URI: %w", err)
	}
	return []byte(data), nil
}
