package ffprobe

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/provider"
	"github.com/Digital-Shane/metahub/internal/registry"
	"gopkg.in/vansante/go-ffprobe.v2"
)

const (
	providerID  = "ffprobe"
	filePathKey = "path"

	defaultTimeout = 30 * time.Second
)

// Capabilities lists what an ffprobe instance serves.
var Capabilities = []provider.Capability{
	provider.CapabilityMetadata,
	provider.CapabilityStreams,
}

// probeFunc defines the function signature used to execute ffprobe.
type probeFunc func(ctx context.Context, path string, extraOpts ...string) (*ffprobe.ProbeData, error)

// Provider describes local or remote media files with ffprobe.
type Provider struct {
	provider.Base

	probe    probeFunc
	lookPath func(file string) (string, error)
	binary   string
	timeout  time.Duration
}

// New creates an ffprobe provider. Settings: binary (path to ffprobe).
func New(cfg provider.ProviderConfig, logger log.Logger) (*Provider, error) {
	base, err := provider.NewBase(cfg, logger)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		Base:     base,
		probe:    ffprobe.ProbeURL,
		lookPath: exec.LookPath,
		binary:   cfg.StringSetting("binary", "ffprobe"),
		timeout:  cfg.Connection.Timeout,
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	if p.binary != "ffprobe" {
		ffprobe.SetFFProbeBinPath(p.binary)
	}
	return p, nil
}

// Constructor returns a registry constructor for ffprobe instances.
func Constructor() provider.Constructor {
	return func(ctx context.Context, cfg provider.ProviderConfig, logger log.Logger) (provider.Instance, error) {
		return New(cfg, logger)
	}
}

// Register registers every ffprobe capability with r under cfg.
func Register(r *registry.Registry, cfg provider.ProviderConfig) error {
	ctor := Constructor()
	ctors := make(map[provider.Capability]provider.Constructor, len(Capabilities))
	for _, c := range Capabilities {
		ctors[c] = ctor
	}
	return r.RegisterProviderWithCapabilities(providerID, ctors, cfg)
}

// HealthCheck reports whether the ffprobe binary can be found.
func (p *Provider) HealthCheck(ctx context.Context) provider.HealthResult {
	return p.CheckHealth(ctx, p.timeout, func(ctx context.Context) error {
		if _, err := p.lookPath(p.binary); err != nil {
			return provider.NewError(p.ID(), provider.CodeNotConfigured, fmt.Sprintf("ffprobe binary %q not found", p.binary))
		}
		return nil
	})
}

// Metadata returns technical metadata for the file in request.Extra["path"].
func (p *Provider) Metadata(ctx context.Context, request provider.FetchRequest) (*provider.Metadata, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "metadata", func(ctx context.Context) (*provider.Metadata, error) {
		if request.MediaType != provider.MediaTypeMovie && request.MediaType != provider.MediaTypeEpisode {
			return nil, provider.NewError(p.ID(), provider.CodeInvalidRequest,
				fmt.Sprintf("ffprobe does not handle media type %s", request.MediaType))
		}

		path, err := p.extractPath(request.Extra)
		if err != nil {
			return nil, err
		}

		data, err := p.run(ctx, path)
		if err != nil {
			return nil, err
		}
		return p.buildMetadata(request, data), nil
	})
}

// Streams describes the file at request.URL, or request.Request.Extra["path"]
// when no URL is given.
func (p *Provider) Streams(ctx context.Context, request provider.StreamRequest) ([]provider.Stream, error) {
	return provider.ExecuteWithErrorHandling(ctx, &p.Base, "streams", func(ctx context.Context) ([]provider.Stream, error) {
		path := request.URL
		if path == "" {
			var err error
			if path, err = p.extractPath(request.Request.Extra); err != nil {
				return nil, err
			}
		}

		data, err := p.run(ctx, path)
		if err != nil {
			return nil, err
		}
		return []provider.Stream{describe(path, data)}, nil
	})
}

func (p *Provider) run(ctx context.Context, path string) (*ffprobe.ProbeData, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	data, err := p.probe(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, provider.Classify(p.ID(), ctx.Err())
		}
		return nil, provider.NewError(p.ID(), provider.CodeOperationFailed,
			fmt.Sprintf("ffprobe failed for %s: %v", path, err))
	}
	return data, nil
}

func (p *Provider) buildMetadata(request provider.FetchRequest, data *ffprobe.ProbeData) *provider.Metadata {
	meta := &provider.Metadata{
		Core: provider.CoreMetadata{
			MediaType: request.MediaType,
			Title:     request.Name,
		},
		Extended:   make(map[string]interface{}),
		Sources:    make(map[string]string),
		IDs:        make(map[string]string),
		Confidence: 1.0,
	}

	if data == nil || data.Format == nil {
		return meta
	}

	set := func(key string, value interface{}) {
		meta.Extended[key] = value
		meta.Sources[key] = providerID
	}

	if video := data.FirstVideoStream(); video != nil {
		if codec := pickCodecName(video); codec != "" {
			set("video_codec", codec)
		}
		if res := resolution(video.Height); res != "" {
			set("video_resolution", res)
		}
	}
	if audio := data.FirstAudioStream(); audio != nil {
		if codec := pickCodecName(audio); codec != "" {
			set("audio_codec", codec)
		}
	}
	if data.Format.DurationSeconds > 0 {
		set("runtime", int(data.Format.DurationSeconds/60))
	}
	return meta
}

func describe(path string, data *ffprobe.ProbeData) provider.Stream {
	s := provider.Stream{URL: path}
	if data == nil {
		return s
	}
	if data.Format != nil {
		s.Container = data.Format.FormatName
		s.Duration = time.Duration(data.Format.DurationSeconds * float64(time.Second))
		s.BitRate, _ = strconv.ParseInt(data.Format.BitRate, 10, 64)
	}
	if video := data.FirstVideoStream(); video != nil {
		s.VideoCodec = pickCodecName(video)
		s.Width = video.Width
		s.Height = video.Height
	}
	if audio := data.FirstAudioStream(); audio != nil {
		s.AudioCodec = pickCodecName(audio)
	}
	for _, stream := range data.Streams {
		if stream != nil && stream.CodecType == string(ffprobe.StreamAudio) {
			s.AudioTracks++
		}
	}
	return s
}

// resolution names common video heights, e.g. 1080 -> "1080p".
func resolution(height int) string {
	switch {
	case height <= 0:
		return ""
	case height >= 2160:
		return "2160p"
	case height >= 1440:
		return "1440p"
	case height >= 1080:
		return "1080p"
	case height >= 720:
		return "720p"
	case height >= 576:
		return "576p"
	case height >= 480:
		return "480p"
	default:
		return strconv.Itoa(height) + "p"
	}
}

func (p *Provider) extractPath(extra map[string]interface{}) (string, error) {
	switch v := extra[filePathKey].(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v, nil
		}
	case fmt.Stringer:
		if value := v.String(); value != "" {
			return value, nil
		}
	}
	return "", provider.NewError(p.ID(), provider.CodeInvalidRequest, "ffprobe requires a non-empty file path")
}

func pickCodecName(stream *ffprobe.Stream) string {
	if stream == nil {
		return ""
	}
	if stream.CodecName != "" {
		return stream.CodecName
	}
	return stream.CodecLongName
}
