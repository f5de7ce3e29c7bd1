package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/qrgen/internal/models"
	"github.com/harrylevesque/qrgen/internal/payload"
	"github.com/harrylevesque/qrgen/internal/render"
	"github.com/harrylevesque/qrgen/internal/scan"
)

// intentFlags are shared by every command that builds a payload.
type intentFlags struct {
	kind    string
	sets    []string
	payload string
}

func (f *intentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.kind, "type", "t", "url", "intent type (see 'qrgen kinds')")
	cmd.Flags().StringArrayVarP(&f.sets, "set", "s", nil, "content field as key=value, repeatable")
	cmd.Flags().StringVar(&f.payload, "payload", "", "use this payload text as is")
}

// content builds the field bag from --set flags.
func (f *intentFlags) content() (models.Content, error) {
	var c models.Content
	for _, kv := range f.sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return c, fmt.Errorf("--set %q: expected key=value", kv)
		}
		if err := c.Set(strings.TrimSpace(key), value); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (f *intentFlags) resolve() (string, error) {
	if f.payload != "" {
		return f.payload, nil
	}
	kind, ok := models.ParseKind(f.kind)
	if !ok {
		return "", fmt.Errorf("unknown type %q", f.kind)
	}
	c, err := f.content()
	if err != nil {
		return "", err
	}
	loc, err := cfg.Location()
	if err != nil {
		return "", err
	}
	return payload.EncodeContent(kind, c, loc), nil
}

var (
	encodeFlags  intentFlags
	renderFlags  intentFlags
	previewFlags intentFlags

	renderOut      string
	renderFormat   string
	renderSettings models.RenderSettings
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the payload for an intent",
	Example: `  qrgen encode -t wifi -s ssid=Home -s password=secret1
  qrgen encode -t location -s latitude=37.7749 -s longitude=-122.4194`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := encodeFlags.resolve()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the QR image for an intent to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := renderFlags.resolve()
		if err != nil {
			return err
		}
		format, err := render.ParseFormat(renderFormat)
		if err != nil {
			return err
		}
		r := render.New(render.Options{
			DefaultSize: cfg.Render.DefaultSize,
			MaxSize:     cfg.Render.MaxSize,
			Logos:       &render.Loader{Timeout: cfg.Render.LogoTimeout, AllowFiles: true},
		})
		var img []byte
		if format == render.FormatSVG {
			img, err = r.SVG(text, renderSettings)
		} else {
			img, err = r.PNG(context.Background(), text, renderSettings)
		}
		if err != nil {
			return err
		}
		out := renderOut
		if out == "" {
			out = render.Filename("", format)
		}
		if err := os.WriteFile(out, img, 0o644); err != nil {
			return err
		}
		log.Infow("rendered", "file", out, "bytes", len(img))
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Draw the QR code for an intent in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := previewFlags.resolve()
		if err != nil {
			return err
		}
		if err := render.Terminal(cmd.OutOrStdout(), text); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Decode a QR image and classify its payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		text, err := scan.Bytes(data)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, text)
		in, err := payload.Parse(text)
		if err != nil {
			log.Warnf("unrecognised payload: %v", err)
			return nil
		}
		fmt.Fprintf(out, "type: %s\n", in.Kind())
		return nil
	},
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List intent types and social platforms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, k := range models.Kinds {
			fmt.Fprintln(out, k)
		}
		fmt.Fprintf(out, "social platforms: %s\n", strings.Join(payload.Platforms(), ", "))
		return nil
	},
}

func init() {
	encodeFlags.register(encodeCmd)
	renderFlags.register(renderCmd)
	previewFlags.register(previewCmd)

	f := renderCmd.Flags()
	f.StringVarP(&renderOut, "out", "o", "", "output file (default qr-code.<format>)")
	f.StringVar(&renderFormat, "format", "png", "png or svg")
	f.IntVar(&renderSettings.Size, "size", 0, "image size in pixels")
	f.StringVar(&renderSettings.ForegroundColor, "fg", models.DefaultForeground, "foreground color")
	f.StringVar(&renderSettings.BackgroundColor, "bg", models.DefaultBackground, "background color")
	f.StringVar(&renderSettings.LogoURL, "logo", "", "logo file, http(s) URL or data URI")
	f.IntVar(&renderSettings.LogoSize, "logo-size", 0, "logo edge in pixels (default 20% of size)")
}
