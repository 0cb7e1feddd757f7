package cards

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError is a structured, user-displayable list parsing error.
type ParseError struct {
	Title  string
	Text   string
	Footer string
}

func (e *ParseError) Error() string {
	if e.Footer != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Title, e.Text, e.Footer)
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Text)
}

// Card line grammar: "[count] name [(SET) [number]] [+F]".
var lineRegex = regexp.MustCompile(`^(?:(\d+)\s+)?([^(\n]+?)(?:\s+\((\w+)\)(?:\s+([^+\s]+))?)?(?:\s+\+?(F))?$`)

// Slot header: "[Name]" or "[Name(count)]".
var slotHeaderRegex = regexp.MustCompile(`^\[([^(\]]+)(?:\((\d+)\))?\]$`)

// Layout declaration: "- Name (weight)".
var layoutHeaderRegex = regexp.MustCompile(`^-\s+(.+?)\s+\((\d+)\)$`)

// ParsedLine is the result of resolving one card line against the database.
type ParsedLine struct {
	Count  int
	CardID CardID
	Foil   bool
}

// ParseLine resolves a single card line. Name-only lines resolve to the
// preferred printing; a set and collector number narrow the candidates, with
// the lowest collector number winning ties. Double-faced names fall back to
// the front face before failing.
func ParseLine(db *Database, line string) (ParsedLine, error) {
	trimmed := strings.TrimSpace(line)
	match := lineRegex.FindStringSubmatch(trimmed)
	if match == nil {
		return ParsedLine{}, &ParseError{
			Title:  "Syntax Error",
			Text:   fmt.Sprintf("The line '%s' doesn't match the card syntax.", trimmed),
			Footer: fmt.Sprintf("Full line: '%s'", trimmed),
		}
	}

	countStr, name, set, number, foilStr := match[1], match[2], match[3], match[4], match[5]
	count := 1
	if n, err := strconv.Atoi(countStr); err == nil {
		count = n
	}
	foil := foilStr != ""

	if set != "" {
		set = NormalizeSet(strings.ToLower(set))
	}

	// Only a name: take the preferred printing.
	if set == "" && number == "" {
		if id, ok := db.CardByName(name); ok {
			return ParsedLine{Count: count, CardID: id, Foil: foil}, nil
		}
	}

	candidates := db.CardVersionsByName(name)
	if len(candidates) == 0 {
		// Double-faced cards may be listed by their front face only.
		front, _, found := strings.Cut(name, " //")
		if found {
			candidates = db.CardVersionsByName(front)
		}
	}

	var best CardID
	for _, cid := range candidates {
		card, err := db.GetCard(cid)
		if err != nil {
			continue
		}
		if set != "" && card.Set != set {
			continue
		}
		if number != "" && card.CollectorNumber != number {
			continue
		}
		// Candidates are ordered by collector number; first match wins.
		best = cid
		break
	}
	if best != "" {
		return ParsedLine{Count: count, CardID: best, Foil: foil}, nil
	}

	text := fmt.Sprintf("Could not find '%s' in the card database.", name)
	if len(db.CardVersionsByName(name)) > 0 {
		text = fmt.Sprintf("Could not find this exact version of '%s' (%s) in the card database, but other printings are available.", name, set)
	}
	return ParsedLine{}, &ParseError{
		Title:  "Card not found",
		Text:   text,
		Footer: fmt.Sprintf("Full line: '%s'", trimmed),
	}
}

// ParseCardList parses free-form custom card list text into slots, layouts
// and settings.
//
// Recognised sections:
//
//	[Settings]       followed by a JSON object
//	[Layouts]        followed by "- Name (weight)" blocks with "count slot" lines
//	[SlotName(n)]    opens a named slot holding n cards per pack
//
// A list without any section headers produces a single default slot.
func ParseCardList(db *Database, text string) (*CustomCardList, error) {
	list := &CustomCardList{
		Slots: make(map[string]map[CardID]int),
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	currentSlot := ""
	slotSizes := make(map[string]int)

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}

		if line == "[Settings]" {
			end, err := parseSettingsBlock(lines, i+1, &list.Settings)
			if err != nil {
				return nil, err
			}
			i = end
			continue
		}

		if line == "[Layouts]" {
			layouts, end, err := parseLayoutsBlock(lines, i+1)
			if err != nil {
				return nil, err
			}
			list.Layouts = layouts
			i = end
			continue
		}

		if match := slotHeaderRegex.FindStringSubmatch(line); match != nil {
			currentSlot = match[1]
			if match[2] != "" {
				size, _ := strconv.Atoi(match[2])
				slotSizes[currentSlot] = size
			}
			list.Slots[currentSlot] = make(map[CardID]int)
			i++
			continue
		}

		parsed, err := ParseLine(db, line)
		if err != nil {
			return nil, err
		}
		slot := currentSlot
		if slot == "" {
			slot = DefaultSlot
			if list.Slots[slot] == nil {
				list.Slots[slot] = make(map[CardID]int)
			}
		}
		list.Slots[slot][parsed.CardID] += parsed.Count
		i++
	}

	if len(list.Slots) == 0 {
		return nil, &ParseError{Title: "Empty List", Text: "The card list contains no cards."}
	}

	// Slot headers with sizes but no explicit layouts define a single implied
	// layout covering every sized slot.
	if list.Layouts == nil && len(slotSizes) > 0 {
		layout := Layout{Name: DefaultSlot, Weight: 1, Slots: make(map[string]int, len(slotSizes))}
		for name, size := range slotSizes {
			layout.Slots[name] = size
		}
		list.Layouts = map[string]Layout{layout.Name: layout}
	}

	// Layouts may only reference declared slots.
	for _, layout := range list.Layouts {
		for slot := range layout.Slots {
			if _, ok := list.Slots[slot]; !ok {
				return nil, &ParseError{
					Title:  "Invalid Layout",
					Text:   fmt.Sprintf("Layout '%s' references undeclared slot '%s'.", layout.Name, slot),
					Footer: "Declare the slot with a [SlotName] section before using it in a layout.",
				}
			}
		}
	}

	return list, nil
}

func parseSettingsBlock(lines []string, start int, settings *ListSettings) (int, error) {
	var sb strings.Builder
	i := start
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "[") {
			break
		}
		sb.WriteString(lines[i])
		sb.WriteString("\n")
		i++
	}

	raw := strings.TrimSpace(sb.String())
	if raw == "" {
		return i, &ParseError{Title: "Invalid Settings", Text: "The [Settings] section is empty."}
	}
	if err := json.Unmarshal([]byte(raw), settings); err != nil {
		return i, &ParseError{
			Title:  "Invalid Settings",
			Text:   fmt.Sprintf("The [Settings] section is not valid JSON: %v.", err),
			Footer: raw,
		}
	}
	return i, nil
}

func parseLayoutsBlock(lines []string, start int) (map[string]Layout, int, error) {
	layouts := make(map[string]Layout)
	var current *Layout

	i := start
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			i++
			continue
		}
		if strings.HasPrefix(trimmed, "[") {
			break
		}

		if match := layoutHeaderRegex.FindStringSubmatch(trimmed); match != nil {
			weight, _ := strconv.Atoi(match[2])
			layout := Layout{Name: match[1], Weight: weight, Slots: make(map[string]int)}
			layouts[layout.Name] = layout
			current = &layout
			i++
			continue
		}

		if current == nil {
			return nil, i, &ParseError{
				Title: "Invalid Layouts",
				Text:  fmt.Sprintf("Expected a layout declaration ('- Name (weight)') but found '%s'.", trimmed),
			}
		}

		count, slot, found := strings.Cut(trimmed, " ")
		n, err := strconv.Atoi(count)
		if !found || err != nil {
			return nil, i, &ParseError{
				Title: "Invalid Layouts",
				Text:  fmt.Sprintf("Expected 'count slotName' but found '%s'.", trimmed),
			}
		}
		current.Slots[strings.TrimSpace(slot)] = n
		layouts[current.Name] = *current
		i++
	}

	if len(layouts) == 0 {
		return nil, i, &ParseError{Title: "Invalid Layouts", Text: "The [Layouts] section declares no layouts."}
	}
	return layouts, i, nil
}
