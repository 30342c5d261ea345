package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Built-in backend classes.
const (
	ClassLocal = "local"
	ClassSMB   = "smb"
	ClassFTP   = "ftp"
	ClassSFTP  = "sftp"
	ClassDAV   = "dav"
	ClassS3    = "s3"
	ClassSwift = "swift"
)

// ErrMissingOption is wrapped by checks when a required option is empty.
var ErrMissingOption = errors.New("missing required option")

// Builtins returns the definitions of every built-in backend.
func Builtins() []Definition {
	return []Definition{
		{
			Class:   ClassLocal,
			Name:    "Local",
			Options: []string{"datadir"},
			// Local paths reach into the server's filesystem: administrators only.
			PersonalAllowed: false,
			Check:           checkLocal,
			Endpoint:        func(map[string]any) string { return ClassLocal },
		},
		{
			Class:           ClassSMB,
			Name:            "SMB / CIFS",
			Options:         []string{"host", "share", "root", "user", "password"},
			PersonalAllowed: true,
			Check:           tcpCheck(445, false),
			Endpoint:        tcpEndpoint(445, false),
		},
		{
			Class:           ClassFTP,
			Name:            "FTP",
			Options:         []string{"host", "root", "user", "password", "secure"},
			PersonalAllowed: true,
			Check:           tcpCheck(21, false),
			Endpoint:        tcpEndpoint(21, false),
		},
		{
			Class:           ClassSFTP,
			Name:            "SFTP",
			Options:         []string{"host", "root", "user", "password"},
			PersonalAllowed: true,
			Check:           tcpCheck(22, false),
			Endpoint:        tcpEndpoint(22, false),
		},
		{
			Class:           ClassDAV,
			Name:            "WebDAV",
			Options:         []string{"host", "root", "user", "password", "secure"},
			PersonalAllowed: true,
			Check:           tcpCheck(80, true),
			Endpoint:        tcpEndpoint(80, true),
		},
		{
			Class:           ClassS3,
			Name:            "Amazon S3 and compliant",
			Options:         []string{"key", "secret", "bucket", "hostname", "port", "region", "use_ssl", "use_path_style"},
			PersonalAllowed: true,
			Check:           checkS3,
			Endpoint:        s3Endpoint,
		},
		{
			Class:           ClassSwift,
			Name:            "OpenStack Object Storage",
			Options:         []string{"user", "bucket", "region", "key", "tenant", "password", "url", "service_name", "timeout"},
			PersonalAllowed: true,
			Check:           checkSwift,
			Endpoint:        swiftEndpoint,
		},
	}
}

// decodeOptions decodes legacy options into out. Legacy tables store
// numbers and booleans as strings, so decoding is weakly typed.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("invalid backend options: %w", err)
	}
	return nil
}

type localOptions struct {
	Datadir string `mapstructure:"datadir"`
}

func checkLocal(_ context.Context, _ Dialer, options map[string]any) error {
	var opts localOptions
	if err := decodeOptions(options, &opts); err != nil {
		return err
	}
	if opts.Datadir == "" {
		return fmt.Errorf("%w: datadir", ErrMissingOption)
	}

	info, err := os.Stat(opts.Datadir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", opts.Datadir)
	}
	return nil
}

// remoteOptions covers the host based backends.
type remoteOptions struct {
	Host   string `mapstructure:"host"`
	Secure bool   `mapstructure:"secure"`
}

// address resolves host into host:port. The host may carry a scheme
// ("https://dav.example.com") and a port; otherwise defaultPort applies,
// or 443 when tlsAware and the connection is secure.
func (o remoteOptions) address(defaultPort int, tlsAware bool) (string, error) {
	host := strings.TrimSpace(o.Host)
	if host == "" {
		return "", fmt.Errorf("%w: host", ErrMissingOption)
	}

	secure := o.Secure
	if strings.Contains(host, "://") {
		parsed, err := url.Parse(host)
		if err != nil {
			return "", fmt.Errorf("invalid host %q: %w", o.Host, err)
		}
		secure = secure || parsed.Scheme == "https" || parsed.Scheme == "ftps"
		host = parsed.Host
	} else if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}

	port := defaultPort
	if tlsAware && secure {
		port = 443
	}

	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

func tcpCheck(defaultPort int, tlsAware bool) CheckFunc {
	return func(ctx context.Context, dialer Dialer, options map[string]any) error {
		var opts remoteOptions
		if err := decodeOptions(options, &opts); err != nil {
			return err
		}
		address, err := opts.address(defaultPort, tlsAware)
		if err != nil {
			return err
		}
		return dial(ctx, dialer, address)
	}
}

func tcpEndpoint(defaultPort int, tlsAware bool) EndpointFunc {
	return func(options map[string]any) string {
		var opts remoteOptions
		if err := decodeOptions(options, &opts); err != nil {
			return ""
		}
		address, _ := opts.address(defaultPort, tlsAware)
		return address
	}
}

func dial(ctx context.Context, dialer Dialer, address string) error {
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

type swiftOptions struct {
	URL string `mapstructure:"url"`
}

func swiftAddress(options map[string]any) (string, error) {
	var opts swiftOptions
	if err := decodeOptions(options, &opts); err != nil {
		return "", err
	}
	if opts.URL == "" {
		return "", fmt.Errorf("%w: url", ErrMissingOption)
	}
	return remoteOptions{Host: opts.URL}.address(80, true)
}

func checkSwift(ctx context.Context, dialer Dialer, options map[string]any) error {
	address, err := swiftAddress(options)
	if err != nil {
		return err
	}
	return dial(ctx, dialer, address)
}

func swiftEndpoint(options map[string]any) string {
	address, _ := swiftAddress(options)
	return address
}
