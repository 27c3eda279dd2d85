package fetcher

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/streamgate/streamgate/internal/models"
)

var (
	reTvgName     = regexp.MustCompile(`tvg-name="([^"]*)"`)
	reTvgID       = regexp.MustCompile(`tvg-id="([^"]*)"`)
	reTvgLogo     = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reTvgLanguage = regexp.MustCompile(`tvg-language="([^"]*)"`)
	reGroup       = regexp.MustCompile(`group-title="([^"]*)"`)
	reCommaName   = regexp.MustCompile(`,([^\n\r\t]*)`)
)

// DefaultCategory is assigned when an entry carries no group-title. The
// authorizer filters on category, so every channel needs one.
const DefaultCategory = "general"

// ParseM3U reads an M3U playlist from r and maps each entry onto a catalog
// channel: group-title becomes the category, tvg-logo the logo, tvg-language
// the language, and tvg-id (when present) the channel id. Entries without a
// resolvable name or URL are skipped.
func ParseM3U(r io.Reader) ([]models.Channel, error) {
	var channels []models.Channel
	scanner := bufio.NewScanner(r)
	// Handle long lines (some M3U have very long EXTINF lines).
	const maxSize = 1024 * 1024
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxSize)

	var extinfLine string
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(strings.ToUpper(trimmed), "#EXTINF"):
			// A previous EXTINF without a URL line is dropped as malformed.
			extinfLine = line
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			// Headers and unrelated directives are ignored.
		default:
			// URL line.
			if extinfLine == "" {
				continue
			}
			name := channelName(extinfLine)
			if name == "" {
				extinfLine = ""
				continue
			}
			category := matchFirst(reGroup, extinfLine)
			if category == "" {
				category = DefaultCategory
			}
			channels = append(channels, models.Channel{
				ID:       matchFirst(reTvgID, extinfLine),
				Name:     name,
				URL:      trimmed,
				Category: category,
				Language: matchFirst(reTvgLanguage, extinfLine),
				Logo:     matchFirst(reTvgLogo, extinfLine),
			})
			extinfLine = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return channels, nil
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// channelName extracts the display name: tvg-name, then the comma-separated
// trailing title of the EXTINF line, then tvg-id.
func channelName(extinf string) string {
	if n := matchFirst(reTvgName, extinf); n != "" {
		return n
	}
	if n := matchFirst(reCommaName, extinf); n != "" {
		return n
	}
	return matchFirst(reTvgID, extinf)
}
