package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/Digital-Shane/metahub/internal/registry"
	"github.com/spf13/cobra"
)

// Extended keys ffprobe fills in, in display order.
var probeFields = []string{"video_codec", "video_resolution", "audio_codec", "runtime"}

func newIdentifyCommand(opts *rootOptions) *cobra.Command {
	var lookup bool

	cmd := &cobra.Command{
		Use:   "identify <path>",
		Short: "Describe a media file or folder from its name and contents",
		Long: `Parse title, year and episode numbering out of a path with the filename
parser, then probe media files with ffprobe when it is enabled. With --lookup,
the parsed title is also fetched from the best remote metadata provider.`,
		Example: `  metahub identify "/tv/Severance/Season 1/Severance.S01E04.mkv"
  metahub identify "The.Matrix.1999.1080p.mkv" --lookup`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			return a.identify(cmd.Context(), args[0], lookup)
		},
	}
	cmd.Flags().BoolVar(&lookup, "lookup", false, "Also fetch full metadata for the parsed title")
	return cmd
}

func (a *app) identify(ctx context.Context, path string, lookup bool) error {
	parser, ok := registry.Resolve[provider.MetadataProvider](ctx, a.registry, provider.CapabilityMetadata,
		registry.WithInclude("local"))
	if !ok {
		return fmt.Errorf("the filename parser is disabled; enable it with `metahub config set providers.local.enabled true`")
	}

	request := provider.FetchRequest{
		Name:  filepath.Base(path),
		Extra: map[string]interface{}{"path": path},
	}
	meta, err := parser.Metadata(ctx, request)
	if err != nil {
		return err
	}

	core := meta.Core
	rows := [][]string{
		{"type", string(core.MediaType)},
		{"title", core.Title},
		{"year", core.Year},
	}
	switch core.MediaType {
	case provider.MediaTypeEpisode:
		rows = append(rows,
			[]string{"season", strconv.Itoa(core.SeasonNum)},
			[]string{"episode", strconv.Itoa(core.EpisodeNum)})
		if core.EpisodeName != "" {
			rows = append(rows, []string{"episode title", core.EpisodeName})
		}
	case provider.MediaTypeSeason:
		rows = append(rows, []string{"season", strconv.Itoa(core.SeasonNum)})
	}
	rows = append(rows, []string{"confidence", fmt.Sprintf("%.1f", meta.Confidence)})

	if _, isFile := meta.Extended["extension"]; isFile {
		rows = append(rows, a.probe(ctx, core, request)...)
	}

	icon := "movie"
	if core.MediaType != provider.MediaTypeMovie {
		icon = "show"
	}
	a.header(a.theme.Icon(icon) + " " + filepath.Base(path))
	a.table([]string{"FIELD", "VALUE"}, rows)

	if !lookup {
		return nil
	}
	return a.details(ctx, lookupRequest(core))
}

// probe asks ffprobe for technical details. Failures are reported on stderr
// and leave the parsed fields to stand on their own.
func (a *app) probe(ctx context.Context, core provider.CoreMetadata, request provider.FetchRequest) [][]string {
	prober, ok := registry.Resolve[provider.MetadataProvider](ctx, a.registry, provider.CapabilityMetadata,
		registry.WithInclude("ffprobe"))
	if !ok {
		return nil
	}

	request.MediaType = core.MediaType
	request.Name = core.Title
	tech, err := prober.Metadata(ctx, request)
	if err != nil {
		fmt.Fprintf(a.errOut, "%s ffprobe: %v\n", a.theme.Icon("unhealthy"), err)
		a.registry.Factory().RecordInstanceError("ffprobe", provider.CapabilityMetadata, err)
		return nil
	}

	var rows [][]string
	for _, key := range probeFields {
		if v, ok := tech.Extended[key]; ok {
			rows = append(rows, []string{key, fmt.Sprint(v)})
		}
	}
	return rows
}

// lookupRequest turns parsed filename metadata into a remote fetch. Seasons
// are looked up as their show.
func lookupRequest(core provider.CoreMetadata) provider.FetchRequest {
	request := provider.FetchRequest{
		MediaType: core.MediaType,
		Name:      core.Title,
		Year:      core.Year,
		Season:    core.SeasonNum,
		Episode:   core.EpisodeNum,
	}
	if core.MediaType == provider.MediaTypeSeason {
		request.MediaType = provider.MediaTypeShow
	}
	return request
}
