package models

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Model represents a Vosk model
type Model struct {
	Name        string
	Language    string
	Size        string
	URL         string
	Description string

	// Grammar reports whether the model accepts a runtime word list
	Grammar bool
}

// AvailableModels is the built-in Vosk catalogue
var AvailableModels = []Model{
	{
		Name:        "vosk-model-small-en-us-0.15",
		Language:    "en-US",
		Size:        "40M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Description: "Lightweight English model, fast, good for short commands",
		Grammar:     true,
	},
	{
		Name:        "vosk-model-en-us-0.22-lgraph",
		Language:    "en-US",
		Size:        "128M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22-lgraph.zip",
		Description: "Medium English model, balanced speed and accuracy",
		Grammar:     true,
	},
	{
		Name:        "vosk-model-en-us-0.22",
		Language:    "en-US",
		Size:        "1.8G",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22.zip",
		Description: "Large English model, slower, no grammar support",
		Grammar:     false,
	},
}

// DefaultModelName is the default model to use
const DefaultModelName = "vosk-model-small-en-us-0.15"

const defaultModelFile = ".default_model"

// Store manages models on disk under Dir
type Store struct {
	Dir     string
	Catalog []Model
	Client  *http.Client
}

// NewStore returns a store rooted at dir, or ./models when dir is empty
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = filepath.Join(cwd, "models")
	}
	return &Store{
		Dir:     dir,
		Catalog: AvailableModels,
		Client:  http.DefaultClient,
	}, nil
}

// FindModel finds a model by name in the catalogue
func (s *Store) FindModel(name string) *Model {
	for i := range s.Catalog {
		if s.Catalog[i].Name == name {
			m := s.Catalog[i]
			return &m
		}
	}
	return nil
}

// DefaultModel returns the model saved by SetDefaultModel, or DefaultModelName
func (s *Store) DefaultModel() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir, defaultModelFile))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultModelName, nil
		}
		return DefaultModelName, err
	}

	name := strings.TrimSpace(string(data))
	if name == "" {
		return DefaultModelName, nil
	}
	return name, nil
}

// SetDefaultModel records the model to use when none is requested
func (s *Store) SetDefaultModel(name string) error {
	if s.FindModel(name) == nil {
		return fmt.Errorf("unknown model: %s", name)
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.Dir, defaultModelFile), []byte(name), 0644); err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}
	return nil
}

// IsDownloaded checks if a model directory exists
func (s *Store) IsDownloaded(name string) (bool, error) {
	info, err := os.Stat(filepath.Join(s.Dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// Path returns the directory of a downloaded model
func (s *Store) Path(name string) (string, error) {
	downloaded, err := s.IsDownloaded(name)
	if err != nil {
		return "", err
	}
	if !downloaded {
		return "", fmt.Errorf("model not found: %s", name)
	}
	return filepath.Join(s.Dir, name), nil
}

// SupportsGrammar reports whether a runtime grammar can be used with the model.
// Models outside the catalogue are assumed not to.
func (s *Store) SupportsGrammar(name string) bool {
	m := s.FindModel(name)
	return m != nil && m.Grammar
}

// ListDownloaded lists the model directories present in the store
func (s *Store) ListDownloaded() ([]string, error) {
	if _, err := os.Stat(s.Dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "vosk-model-") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Download fetches and extracts a catalogue model
func (s *Store) Download(ctx context.Context, name string, progress func(downloaded, total int64)) error {
	model := s.FindModel(name)
	if model == nil {
		return fmt.Errorf("unknown model: %s", name)
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	zipPath := filepath.Join(s.Dir, name+".zip")
	defer os.Remove(zipPath)

	if err := s.fetch(ctx, model.URL, zipPath, progress); err != nil {
		return err
	}

	if err := extractZip(zipPath, s.Dir); err != nil {
		return fmt.Errorf("failed to extract model: %w", err)
	}
	return nil
}

func (s *Store) fetch(ctx context.Context, url, dest string, progress func(downloaded, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	total := resp.ContentLength
	var downloaded int64

	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write file: %w", writeErr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("download error: %w", err)
		}
	}
	return nil
}

// extractZip extracts a zip file to the specified directory
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		// ZipSlip
		if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, os.ModePerm); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
			return err
		}

		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(out, rc)
	return err
}
