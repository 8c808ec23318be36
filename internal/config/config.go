package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"go.yaml.in/yaml/v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "VOCALPREP_"

const (
	ProbeFFprobe = "ffprobe"
	ProbeWav     = "wav"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the complete run configuration. Values are layered:
// Default, then the YAML file, then VOCALPREP_* environment variables,
// then command line flags.
type Config struct {
	LogLevel  slog.Level `yaml:"log_level" env:"LOG_LEVEL, overwrite, default=info"`
	LogFormat string     `yaml:"log_format" env:"LOG_FORMAT, overwrite" validate:"oneof=plain text json"`
	Progress  bool       `yaml:"progress" env:"PROGRESS, overwrite"`

	SourceDir     string        `yaml:"source_dir" env:"SOURCE_DIR, overwrite" validate:"required"`
	OutputDir     string        `yaml:"output_dir" env:"OUTPUT_DIR, overwrite" validate:"required"`
	SegmentLength time.Duration `yaml:"segment_length" env:"SEGMENT_LENGTH, overwrite" validate:"gt=0"`
	SpeakerDepth  int           `yaml:"speaker_depth" env:"SPEAKER_DEPTH, overwrite" validate:"gte=0"`
	Extensions    []string      `yaml:"extensions" env:"EXTENSIONS, overwrite" validate:"min=1,dive,startswith=."`
	Jobs          int           `yaml:"jobs" env:"JOBS, overwrite" validate:"gte=1"`

	Probe       string        `yaml:"probe" env:"PROBE, overwrite" validate:"oneof=ffprobe wav"`
	FFmpegPath  string        `yaml:"ffmpeg_path" env:"FFMPEG_PATH, overwrite" validate:"required"`
	FFprobePath string        `yaml:"ffprobe_path" env:"FFPROBE_PATH, overwrite" validate:"required"`
	ToolTimeout time.Duration `yaml:"tool_timeout" env:"TOOL_TIMEOUT, overwrite" validate:"gte=0"`

	Split   Split   `yaml:"split" env:", prefix=SPLIT_"`
	Publish Publish `yaml:"publish" env:", prefix=PUBLISH_"`
}

type Split struct {
	EvalFraction  float64  `yaml:"eval_fraction" env:"EVAL_FRACTION, overwrite" validate:"gte=0,lte=1"`
	HoldoutCount  int      `yaml:"holdout_count" env:"HOLDOUT_COUNT, overwrite" validate:"gte=0"`
	HoldoutLabels []string `yaml:"holdout_labels" env:"HOLDOUT_LABELS, overwrite"`
	Seed          uint64   `yaml:"seed" env:"SEED, overwrite"`
}

type split Split

func (s *Split) UnmarshalYAML(node *yaml.Node) error {
	y := split(*s)
	err := node.Decode(&y)
	if err != nil {
		return err
	}
	if y.HoldoutCount > 0 && len(y.HoldoutLabels) > 0 {
		return errors.New("set only one: split.holdout_count or split.holdout_labels")
	}
	*s = Split(y)
	return nil
}

// Publish names where the generated lists are copied to. At most one target is set.
type Publish struct {
	Dir string `yaml:"dir" env:"DIR, overwrite"`
	S3  S3     `yaml:"s3" env:", prefix=S3_"`
}

type publish Publish

func (p *Publish) UnmarshalYAML(node *yaml.Node) error {
	y := publish(*p)
	err := node.Decode(&y)
	if err != nil {
		return err
	}
	if err := checkOneSet(y.Dir, y.S3.Bucket); err != nil {
		return err
	}
	*p = Publish(y)
	return nil
}

type S3 struct {
	Bucket          string `yaml:"bucket" env:"BUCKET, overwrite"`
	Region          string `yaml:"region" env:"REGION, overwrite" validate:"required_with=Bucket"`
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT, overwrite" validate:"omitempty,url"`
	Prefix          string `yaml:"prefix" env:"PREFIX, overwrite"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID, overwrite"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY, overwrite"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		LogLevel:      slog.LevelInfo,
		LogFormat:     "plain",
		Progress:      true,
		SourceDir:     "../datasets/VocalSet/FULL",
		OutputDir:     "DataVocalSet",
		SegmentLength: 5 * time.Second,
		Extensions:    []string{".wav"},
		Jobs:          1,
		Probe:         ProbeFFprobe,
		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
		Split: Split{
			EvalFraction: 0.2,
		},
	}
}

// Parse decodes YAML from r on top of Default. Unknown keys are rejected.
func Parse(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	c := Default()
	err := decoder.Decode(c)
	if errors.Is(err, io.EOF) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the optional YAML file at path and applies environment overrides
// found through lookuper. A nil lookuper reads the process environment.
func Load(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	c := Default()
	if path != "" {
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %w", err)
		}
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = f.Close()
		}()

		c, err = Parse(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   c,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	})
	if err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the mutually exclusive options.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fieldError(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if c.Split.HoldoutCount > 0 && len(c.Split.HoldoutLabels) > 0 {
		return fmt.Errorf("%w: set only one: split.holdout_count or split.holdout_labels", ErrInvalid)
	}
	if err := checkOneSet(c.Publish.Dir, c.Publish.S3.Bucket); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	// publishing into the output directory would truncate the files being copied
	if c.Publish.Dir != "" && samePath(c.Publish.Dir, c.OutputDir) {
		return fmt.Errorf("%w: publish.dir must differ from output_dir", ErrInvalid)
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// LogValue hides the S3 credentials.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("source_dir", c.SourceDir),
		slog.String("output_dir", c.OutputDir),
		slog.Duration("segment_length", c.SegmentLength),
		slog.Int("speaker_depth", c.SpeakerDepth),
		slog.Any("extensions", c.Extensions),
		slog.Int("jobs", c.Jobs),
		slog.String("probe", c.Probe),
		slog.Float64("eval_fraction", c.Split.EvalFraction),
		slog.Int("holdout_count", c.Split.HoldoutCount),
		slog.Any("holdout_labels", c.Split.HoldoutLabels),
		slog.String("publish_dir", c.Publish.Dir),
		slog.String("publish_s3_bucket", c.Publish.S3.Bucket),
	)
}

func fieldError(fe validator.FieldError) string {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	if fe.Param() == "" {
		return fmt.Sprintf("%s: failed %s", key, fe.Tag())
	}
	return fmt.Sprintf("%s: failed %s=%s (got %v)", key, fe.Tag(), fe.Param(), fe.Value())
}

// checkOneSet rejects more than one non-empty publish target.
func checkOneSet(args ...string) error {
	args = slices.DeleteFunc(args, func(s string) bool {
		return s == ""
	})
	if len(args) > 1 {
		return errors.New("set only one: publish.dir or publish.s3.bucket")
	}
	return nil
}
