package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emmett/voxbot/internal/models"
)

// ModelManager runs the interactive model commands against a store
type ModelManager struct {
	store *models.Store
	in    *bufio.Reader
	out   io.Writer
}

// NewModelManager prompts on in and reports on out
func NewModelManager(store *models.Store, in io.Reader, out io.Writer) *ModelManager {
	return &ModelManager{store: store, in: bufio.NewReader(in), out: out}
}

// Store returns the underlying model store
func (m *ModelManager) Store() *models.Store {
	return m.store
}

func (m *ModelManager) ListModels() error {
	fmt.Fprintln(m.out, "Available models for download:")
	fmt.Fprintln(m.out)

	for i, model := range m.store.Catalog {
		fmt.Fprintf(m.out, "%d. %s\n", i+1, model.Name)
		fmt.Fprintf(m.out, "   Language: %s\n", model.Language)
		fmt.Fprintf(m.out, "   Size:     %s\n", model.Size)
		fmt.Fprintf(m.out, "   Info:     %s\n", model.Description)
		if model.Grammar {
			fmt.Fprintf(m.out, "   Grammar:  supported\n")
		}

		downloaded, _ := m.store.IsDownloaded(model.Name)
		if downloaded {
			fmt.Fprintf(m.out, "   Status:   ✓ Downloaded\n")
		} else {
			fmt.Fprintf(m.out, "   Status:   Not downloaded\n")
		}
		fmt.Fprintln(m.out)
	}

	fmt.Fprintln(m.out, "To download a model, use:")
	fmt.Fprintln(m.out, "  voxbot --download-model <model-name>")
	return nil
}

func (m *ModelManager) ListDownloaded() error {
	downloaded, err := m.store.ListDownloaded()
	if err != nil {
		return fmt.Errorf("error listing models: %w", err)
	}

	if len(downloaded) == 0 {
		fmt.Fprintln(m.out, "No models downloaded yet.")
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, "Use 'voxbot --list-models' to see available models")
		fmt.Fprintln(m.out, "Use 'voxbot --download-model <name>' to download a model")
		return nil
	}

	defaultModel, _ := m.store.DefaultModel()

	fmt.Fprintf(m.out, "Downloaded models (%d):\n", len(downloaded))
	fmt.Fprintln(m.out)

	for i, name := range downloaded {
		fmt.Fprintf(m.out, "%d. %s", i+1, name)
		if name == defaultModel {
			fmt.Fprint(m.out, " [DEFAULT]")
		}
		fmt.Fprintln(m.out)

		if path, err := m.store.Path(name); err == nil {
			fmt.Fprintf(m.out, "   Path: %s\n", path)
		}
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "To use a model, run:")
	fmt.Fprintln(m.out, "  voxbot --model <model-name>")
	return nil
}

// Download fetches a catalogue model unless it is already present
func (m *ModelManager) Download(ctx context.Context, name string) error {
	model := m.store.FindModel(name)
	if model == nil {
		fmt.Fprintln(m.out, "Use 'voxbot --list-models' to see available models")
		return fmt.Errorf("unknown model: %s", name)
	}

	downloaded, err := m.store.IsDownloaded(name)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}
	if downloaded {
		fmt.Fprintf(m.out, "Model '%s' is already downloaded.\n", name)
		if path, err := m.store.Path(name); err == nil {
			fmt.Fprintf(m.out, "Location: %s\n", path)
		}
		return nil
	}

	fmt.Fprintf(m.out, "Downloading model: %s (%s)\n", model.Name, model.Size)
	fmt.Fprintf(m.out, "Description: %s\n", model.Description)
	fmt.Fprintln(m.out)

	if err := m.fetch(ctx, name); err != nil {
		return fmt.Errorf("error downloading model: %w", err)
	}

	fmt.Fprintf(m.out, "✓ Model '%s' downloaded successfully!\n", name)
	return nil
}

func (m *ModelManager) SetDefault(name string) error {
	model := m.store.FindModel(name)
	if model == nil {
		fmt.Fprintln(m.out, "Use 'voxbot --list-models' to see available models")
		return fmt.Errorf("unknown model: %s", name)
	}

	if err := m.store.SetDefaultModel(name); err != nil {
		return fmt.Errorf("error setting default model: %w", err)
	}

	fmt.Fprintf(m.out, "✓ Default model set to: %s\n", name)
	fmt.Fprintf(m.out, "  Description: %s\n", model.Description)
	fmt.Fprintf(m.out, "  Size: %s\n", model.Size)
	fmt.Fprintln(m.out)

	if downloaded, _ := m.store.IsDownloaded(name); !downloaded {
		fmt.Fprintln(m.out, "Note: This model is not yet downloaded.")
		fmt.Fprintf(m.out, "Run 'voxbot --download-model %s' to download it.\n", name)
	}
	return nil
}

// SelectInteractive asks the user to pick a catalogue model, offering to download it
func (m *ModelManager) SelectInteractive(ctx context.Context) (string, error) {
	fmt.Fprintln(m.out, "Select a model to use:")
	fmt.Fprintln(m.out)

	for i, model := range m.store.Catalog {
		status := "Not downloaded"
		if downloaded, _ := m.store.IsDownloaded(model.Name); downloaded {
			status = "✓ Downloaded"
		}

		fmt.Fprintf(m.out, "%d. %s (%s)\n", i+1, model.Name, model.Size)
		fmt.Fprintf(m.out, "   %s\n", model.Description)
		fmt.Fprintf(m.out, "   Status: %s\n", status)
		fmt.Fprintln(m.out)
	}

	fmt.Fprintf(m.out, "Enter number (1-%d): ", len(m.store.Catalog))
	input, err := m.readLine()
	if err != nil {
		return "", err
	}

	var choice int
	if _, err := fmt.Sscanf(input, "%d", &choice); err != nil || choice < 1 || choice > len(m.store.Catalog) {
		return "", fmt.Errorf("invalid selection")
	}

	selected := m.store.Catalog[choice-1].Name
	fmt.Fprintf(m.out, "\nSelected: %s\n", selected)

	if downloaded, _ := m.store.IsDownloaded(selected); downloaded {
		return selected, nil
	}

	fmt.Fprintln(m.out, "This model is not downloaded.")
	if !m.confirm("Download now? (y/n): ") {
		return "", fmt.Errorf("cannot proceed without model")
	}
	if err := m.fetch(ctx, selected); err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	return selected, nil
}

// EnsureModel makes sure the model is on disk, downloading it when allowed
func (m *ModelManager) EnsureModel(ctx context.Context, name string, autoDownload bool) (string, error) {
	downloaded, err := m.store.IsDownloaded(name)
	if err != nil {
		return "", fmt.Errorf("failed to check for model: %w", err)
	}
	if downloaded {
		return name, nil
	}

	if m.store.FindModel(name) == nil {
		return "", fmt.Errorf("model '%s' not found in %s", name, m.store.Dir)
	}

	if !autoDownload {
		fmt.Fprintf(m.out, "Model '%s' not found.\n", name)
		fmt.Fprintln(m.out)
		if !m.confirm(fmt.Sprintf("Download '%s'? (y/n): ", name)) {
			fmt.Fprintln(m.out)
			fmt.Fprintln(m.out, "You can download models using:")
			fmt.Fprintln(m.out, "  voxbot --list-models           # List available models")
			fmt.Fprintln(m.out, "  voxbot --download-model <name> # Download a specific model")
			return "", fmt.Errorf("model download declined")
		}
	} else {
		fmt.Fprintf(m.out, "Model '%s' not found. Downloading automatically...\n", name)
	}

	if err := m.fetch(ctx, name); err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	return name, nil
}

// SelectModel resolves the model to run: explicit name, interactive pick, or the stored default
func (m *ModelManager) SelectModel(ctx context.Context, name string, interactive bool) (string, error) {
	if name != "" {
		return name, nil
	}
	if interactive {
		return m.SelectInteractive(ctx)
	}
	return m.store.DefaultModel()
}

func (m *ModelManager) fetch(ctx context.Context, name string) error {
	err := m.store.Download(ctx, name, func(downloaded, total int64) {
		if total > 0 {
			percent := float64(downloaded) / float64(total) * 100
			fmt.Fprintf(m.out, "\rProgress: %.1f%% (%d/%d bytes)", percent, downloaded, total)
		} else {
			fmt.Fprintf(m.out, "\rProgress: %d bytes", downloaded)
		}
	})
	fmt.Fprintln(m.out)
	return err
}

func (m *ModelManager) confirm(prompt string) bool {
	fmt.Fprint(m.out, prompt)
	response, err := m.readLine()
	if err != nil {
		return false
	}
	response = strings.ToLower(response)
	return response == "y" || response == "yes"
}

func (m *ModelManager) readLine() (string, error) {
	line, err := m.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
