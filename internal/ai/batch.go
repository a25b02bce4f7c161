package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

type batchLine struct {
	CustomID string `json:"custom_id"`
	Method   string `json:"method"`
	URL      string `json:"url"`
	Body     struct {
		Model string `json:"model"`
		Input string `json:"input"`
	} `json:"body"`
}

// SubmitEmbeddingBatch uploads one JSONL line per product and creates a
// provider-hosted batch embedding job. Completion arrives later via webhook.
func (p *OpenAIProvider) SubmitEmbeddingBatch(ctx context.Context, items []BatchInput) (*BatchSubmission, error) {
	if len(items) == 0 {
		return nil, errors.New("openai: batch requires at least one input")
	}

	var jsonl bytes.Buffer
	enc := json.NewEncoder(&jsonl)
	for _, item := range items {
		var line batchLine
		line.CustomID = strconv.FormatUint(item.ProductID, 10)
		line.Method = http.MethodPost
		line.URL = "/v1/embeddings"
		line.Body.Model = p.EmbedModel
		line.Body.Input = item.Text
		if err := enc.Encode(line); err != nil {
			return nil, err
		}
	}

	fileID, err := p.uploadBatchFile(ctx, jsonl.Bytes())
	if err != nil {
		return nil, err
	}

	batchID, err := p.createBatch(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return &BatchSubmission{InputFileID: fileID, BatchID: batchID}, nil
}

func (p *OpenAIProvider) uploadBatchFile(ctx context.Context, jsonl []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", "batch"); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", "products.jsonl")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(jsonl); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/files", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai: file upload status %d", resp.StatusCode)
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.ID == "" {
		return "", errors.New("openai: file upload returned no id")
	}
	return decoded.ID, nil
}

func (p *OpenAIProvider) createBatch(ctx context.Context, inputFileID string) (string, error) {
	b, err := json.Marshal(map[string]string{
		"input_file_id":     inputFileID,
		"endpoint":          "/v1/embeddings",
		"completion_window": "24h",
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/batches", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai: batch create status %d", resp.StatusCode)
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.ID == "" {
		return "", errors.New("openai: batch create returned no id")
	}
	return decoded.ID, nil
}

// RetrieveBatchEmbeddings fetches a completed batch's output file and parses
// one embedding per line, keyed by the product id in custom_id. Malformed
// lines are skipped.
func (p *OpenAIProvider) RetrieveBatchEmbeddings(ctx context.Context, batchID string) ([]ProductEmbedding, error) {
	outputFileID, err := p.batchOutputFileID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/files/%s/content", strings.TrimRight(p.BaseURL, "/"), outputFileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai: file content status %d", resp.StatusCode)
	}
	return ParseBatchOutput(resp.Body)
}

func (p *OpenAIProvider) batchOutputFileID(ctx context.Context, batchID string) (string, error) {
	url := fmt.Sprintf("%s/batches/%s", strings.TrimRight(p.BaseURL, "/"), batchID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai: batch retrieve status %d", resp.StatusCode)
	}

	var decoded struct {
		OutputFileID string `json:"output_file_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.OutputFileID == "" {
		return "", errors.New("openai: batch has no output file")
	}
	return decoded.OutputFileID, nil
}

type batchOutputLine struct {
	CustomID string `json:"custom_id"`
	Response struct {
		Body struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		} `json:"body"`
	} `json:"response"`
}

// ParseBatchOutput decodes the JSONL output of a batch embedding job.
func ParseBatchOutput(r io.Reader) ([]ProductEmbedding, error) {
	sc := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 8*1024*1024)

	var out []ProductEmbedding
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var decoded batchOutputLine
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			continue
		}
		if len(decoded.Response.Body.Data) == 0 {
			continue
		}
		productID, err := strconv.ParseUint(decoded.CustomID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, ProductEmbedding{
			ProductID: productID,
			Embedding: decoded.Response.Body.Data[0].Embedding,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
