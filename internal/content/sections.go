package content

import (
	"regexp"
	"strings"
)

var (
	boldLine   = regexp.MustCompile(`^\*\*(.+?)\*\*\s*(?:\((.+?)\))?:?\s*(.*)`)
	actionCode = regexp.MustCompile(`\((\w+)\)`)
	codeSuffix = regexp.MustCompile(`\s*\(\w+\)`)
)

type boldBlock struct {
	header  string
	parenth string
	rest    string
	items   []RoleItem
}

// parseBoldBlocks splits markdown built from "**Header** (note): rest" lines
// followed by "- key: value" items. Text before the first header is the intro.
func parseBoldBlocks(md string) (string, []boldBlock) {
	var intro []string
	var blocks []boldBlock
	var current *boldBlock

	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if m := boldLine.FindStringSubmatch(line); m != nil {
			if current != nil {
				blocks = append(blocks, *current)
			}
			current = &boldBlock{
				header:  strings.TrimSpace(m[1]),
				parenth: strings.TrimSpace(m[2]),
				rest:    strings.TrimSpace(m[3]),
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "- ") && current != nil:
			key, value, _ := strings.Cut(strings.TrimSpace(line[2:]), ":")
			current.items = append(current.items, RoleItem{
				Role:        strings.TrimSpace(key),
				Description: strings.TrimSpace(value),
			})
		case current == nil && line != "":
			intro = append(intro, line)
		}
	}
	if current != nil {
		blocks = append(blocks, *current)
	}
	return strings.TrimSpace(strings.Join(intro, "\n")), blocks
}

// classify derives the layout of a section from its heading and content.
// English and German headings are recognised. A section whose body has no
// bold blocks stays plain text.
func classify(s *Section) {
	s.Kind = KindText
	heading := strings.ToLower(s.Heading)

	switch {
	case strings.Contains(heading, "actor") || strings.Contains(heading, "akteurs"):
		intro, blocks := parseBoldBlocks(s.Content)
		if len(blocks) == 0 {
			return
		}
		s.Kind, s.Intro = KindActors, intro
		for _, b := range blocks {
			title := b.header
			if b.parenth != "" {
				title += " (" + b.parenth + ")"
			}
			s.Groups = append(s.Groups, ActorGroup{Title: title, Roles: b.items})
		}

	case strings.Contains(heading, "action") || strings.Contains(heading, "handlungs"):
		intro, blocks := parseBoldBlocks(s.Content)
		if len(blocks) == 0 {
			return
		}
		s.Kind, s.Intro = KindActions, intro
		for _, b := range blocks {
			entry := ActionEntry{
				Category:    strings.TrimSpace(codeSuffix.ReplaceAllString(b.header, "")),
				Description: b.rest,
			}
			if m := actionCode.FindStringSubmatch(b.header); m != nil {
				entry.Code = m[1]
			} else if b.parenth != "" && !strings.ContainsAny(b.parenth, " \t") {
				entry.Code = b.parenth
			}
			s.Actions = append(s.Actions, entry)
		}
	}
}
