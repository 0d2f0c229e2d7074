// main.go - diffkit CLI
//
// Enthält:
// - generate Subcommand fuer One-Shot-Generierung
// - Flag-Definitionen analog zu den Bildgenerierungs-Flags des Servers

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/7blacky7/diffkit/onnx"
	"github.com/7blacky7/diffkit/pipeline"
	"github.com/7blacky7/diffkit/storage"
)

func main() {
	root := &cobra.Command{
		Use:           "diffkit",
		Short:         "On-device diffusion image generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate MODEL_DIR PROMPT",
		Short: "Generate an image from a text prompt",
		Args:  cobra.ExactArgs(2),
		RunE:  runGenerate,
	}

	cmd.Flags().Int("width", 512, "Image width")
	cmd.Flags().Int("height", 512, "Image height")
	cmd.Flags().Int("steps", 20, "Denoising steps")
	cmd.Flags().Int64("seed", 0, "Random seed (0 for random)")
	cmd.Flags().String("negative", "", "Negative prompt")
	cmd.Flags().Float32("guidance", 7.5, "Classifier-free guidance scale")
	cmd.Flags().Int("preview-every", 0, "Write a preview every n steps (0 = off)")
	cmd.Flags().String("out", ".", "Output directory")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	modelDir, prompt := args[0], args[1]
	flags := cmd.Flags()

	width, _ := flags.GetInt("width")
	height, _ := flags.GetInt("height")
	steps, _ := flags.GetInt("steps")
	seed, _ := flags.GetInt64("seed")
	negative, _ := flags.GetString("negative")
	guidance, _ := flags.GetFloat32("guidance")
	previewEvery, _ := flags.GetInt("preview-every")
	outDir, _ := flags.GetString("out")

	cfg := pipeline.ConfigFromEnv()
	defer onnx.DestroyRuntime()

	bundle, err := onnx.LoadModelDir(modelDir, onnx.Options{
		NumThreads: cfg.Threads,
		UseGPU:     cfg.UseGPU,
	})
	if err != nil {
		return err
	}

	gen := pipeline.NewGenerator(
		pipeline.WithLogger(slog.Default()),
		pipeline.WithPreviewDir(cfg.PreviewDir),
	)
	if err := gen.LoadModel(bundle); err != nil {
		return err
	}
	defer gen.UnloadModel()

	store, err := storage.New(outDir)
	if err != nil {
		return err
	}

	result, err := gen.Generate(cmd.Context(), pipeline.GenerationRequest{
		Prompt:          prompt,
		NegativePrompt:  negative,
		Steps:           steps,
		GuidanceScale:   guidance,
		Seed:            seed,
		Width:           width,
		Height:          height,
		PreviewInterval: previewEvery,
	}, func(ev pipeline.Event) {
		switch ev.Kind {
		case pipeline.EventProgress:
			fmt.Printf("\rStep %d/%d (%.0f%%)", ev.Step, ev.TotalSteps, ev.Progress*100)
		case pipeline.EventPreview:
			fmt.Printf("\nPreview: %s\n", ev.PreviewPath)
		case pipeline.EventError:
			fmt.Printf("\nError: %s\n", ev.Message)
		}
	})
	fmt.Println()
	if err != nil {
		return err
	}

	path, err := store.Save(result, prompt)
	if err != nil {
		return err
	}
	fmt.Printf("Image saved to: %s (seed %d)\n", path, result.Seed)
	return nil
}
