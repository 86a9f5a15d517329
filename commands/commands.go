package commands

import (
	"strings"
)

type Privilege int

const (
	Everyone Privilege = iota
	// Administrator requires the Discord administrator permission in the guild.
	Administrator
	// Owner is limited to the configured bot owners.
	Owner
)

type Command struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
	// GuildOnly commands are refused in direct messages.
	GuildOnly bool
	Privilege Privilege
}

var (
	Sauce = &Command{
		Name:      "sauce",
		Aliases:   []string{"source"},
		Usage:     "sauce [url]",
		Help:      "Get the sauce for the attached image, the specified image URL, or the last image uploaded to the channel",
		GuildOnly: true,
	}
	APIKey = &Command{
		Name:      "apikey",
		Usage:     "apikey <key>",
		Help:      "Register an enhanced SauceNao API key for this server, removing the shared daily query limit",
		GuildOnly: true,
		Privilege: Administrator,
	}
	BanGuild = &Command{
		Name:      "ban-guild",
		Aliases:   []string{"gban"},
		Usage:     "ban-guild <guild id> [reason]",
		Help:      "Ban a guild from using the bot and leave it",
		Privilege: Owner,
	}
	UnbanGuild = &Command{
		Name:      "unban-guild",
		Aliases:   []string{"ungban"},
		Usage:     "unban-guild <guild id>",
		Help:      "Remove a guild from the banlist",
		Privilege: Owner,
	}
	Ping = &Command{
		Name:  "ping",
		Usage: "ping",
		Help:  "Test the bot and Discord message response times",
	}
	Info = &Command{
		Name:    "info",
		Aliases: []string{"support"},
		Usage:   "info",
		Help:    "Learn more about the project",
	}
	Stats = &Command{
		Name:  "stats",
		Usage: "stats",
		Help:  "Show usage statistics and host status",
	}
)

// All lists every command in help order.
var All = []*Command{Sauce, APIKey, BanGuild, UnbanGuild, Ping, Info, Stats}

var index = buildIndex(All)

func buildIndex(cmds []*Command) map[string]*Command {
	m := make(map[string]*Command)
	for _, c := range cmds {
		m[c.Name] = c
		for _, a := range c.Aliases {
			m[a] = c
		}
	}
	return m
}

// Lookup finds a command by name or alias, case-insensitively.
func Lookup(name string) (*Command, bool) {
	c, ok := index[strings.ToLower(name)]
	return c, ok
}

// Invocation is a parsed prefix command.
type Invocation struct {
	Command *Command
	// Args are the whitespace separated words after the command name.
	Args []string
	// Rest is the raw text after the command name.
	Rest string
}

// Parse recognises a command invocation in a message. The longest matching
// prefix wins so that "s!" and "s" can coexist.
func Parse(content string, prefixes []string) (*Invocation, bool) {
	prefix := ""
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(content, p) && len(p) > len(prefix) {
			prefix = p
		}
	}
	if prefix == "" {
		return nil, false
	}

	body := strings.TrimLeft(content[len(prefix):], " ")
	name, rest, _ := strings.Cut(body, " ")
	if i := strings.IndexAny(name, "\n\t"); i >= 0 {
		rest = name[i:] + " " + rest
		name = name[:i]
	}
	cmd, ok := Lookup(name)
	if !ok {
		return nil, false
	}
	rest = strings.TrimSpace(rest)
	return &Invocation{Command: cmd, Args: strings.Fields(rest), Rest: rest}, true
}
