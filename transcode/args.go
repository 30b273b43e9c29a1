package transcode

import "vidpress/options"

// Default encode flags injected when the client supplies no codec or
// quality choice of their own.
const (
	defaultVideoCodec = "libx264"
	defaultCRF        = "23"
)

// BuildArgs constructs the engine argument vector:
//
//	-i <input> <validated tokens, client order> [defaults] [-f <format>] -y <output>
//
// Validated tokens are passed verbatim and in the client-supplied
// order. The default codec/CRF pair is appended only when the client
// named neither, and the container flag only when -f is absent. The
// vector is handed to the process as discrete arguments, never joined
// into a shell command line.
func BuildArgs(inputPath, outputPath string, opts options.Validated, format string) []string {
	tokens := opts.Tokens()

	args := make([]string, 0, len(tokens)+8)
	args = append(args, "-i", inputPath)
	args = append(args, tokens...)

	if !hasFlag(tokens, "-c:v") && !hasFlag(tokens, "-vcodec") {
		args = append(args, "-c:v", defaultVideoCodec)
	}
	if !hasFlag(tokens, "-crf") {
		args = append(args, "-crf", defaultCRF)
	}
	if !hasFlag(tokens, "-f") && format != "" {
		args = append(args, "-f", format)
	}

	// -y: overwrite without prompting; the output path is ours and fresh
	args = append(args, "-y", outputPath)
	return args
}

func hasFlag(tokens []string, flag string) bool {
	for i := 0; i < len(tokens); i += 2 {
		if tokens[i] == flag {
			return true
		}
	}
	return false
}
