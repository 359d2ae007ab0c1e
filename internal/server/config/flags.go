package config

import (
	"flag"
	"os"
	"time"

	"github.com/authvault/authvault/internal/flagx"
)

// serverFlagNames are the flags parseFlags owns.
var serverFlagNames = []string{"-a", "-d", "-s", "-t", "-r", "-w", "-u", "-p", "-b", "-g", "-e"}

// ServerFlags lists every value-taking flag the server config consumes,
// including the config-file flags handled by parseJson. Tools that share this
// flag surface use it to separate their own positional arguments.
var ServerFlags = append([]string{"-c", "-config"}, serverFlagNames...)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-d string   database DSN (postgres://... or sqlite://path)
//	-s string   JWT HMAC secret key
//	-t int      access token validity, seconds
//	-r int      refresh token validity, seconds
//	-w int      bcrypt work factor
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in seconds and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], serverFlagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Seconds()), "access token validity (in seconds)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Seconds()), "refresh token validity (in seconds)")

	fs.IntVar(&config.BcryptCost, "w", config.BcryptCost, "bcrypt work factor")

	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Second
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Second
}
