package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	SessionID     int64
	Variable      string
	OutputFile    string
	Format        ImageFormat
	Width         int
	Height        int
	FontFile      string
	NoAnnotations bool
	ListVariables bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format: ImagePNG,
		Width:  1200,
		Height: 400,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat string
	flag.StringVar(&c.DBPath, "db", "", "Path to the session database file")
	flag.Int64Var(&c.SessionID, "s", 1, "Session ID")
	flag.StringVar(&c.Variable, "var", "", "Telemetry variable to plot")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.IntVar(&c.Width, "w", c.Width, "Chart width in pixels")
	flag.IntVar(&c.Height, "h", c.Height, "Chart height in pixels")
	flag.StringVar(&c.FontFile, "font", "", "Path to a TTF font used for axis annotations")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as time and value scales")
	flag.BoolVar(&c.ListVariables, "list", false, "List recorded variables for the session and exit")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.SessionID <= 0 {
		err = errors.New("session id is required")
	} else if !c.ListVariables && c.Variable == "" {
		err = errors.New("variable is required")
	} else if !c.ListVariables && c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if c.Width < 200 || c.Height < 100 {
		err = fmt.Errorf("chart size %dx%d is too small", c.Width, c.Height)
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	if !c.ListVariables {
		c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	}
	return c, nil
}
