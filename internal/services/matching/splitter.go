package matching

import "strings"

// NameSplitter breaks concatenated names ("WILLIAMBURT") apart by checking the
// string against an ordered list of known first names. The list is pluggable
// so deployments can extend it without touching the scoring logic.
type NameSplitter struct {
	prefixes []string
}

// commonFirstNames is checked in order; longer variants come before their
// prefixes (WILLIAM before WILL) so the longest known name wins.
var commonFirstNames = []string{
	"WILLIAM", "ROBERT", "RICHARD", "CHARLES", "MICHAEL", "CHRISTOPHER",
	"JENNIFER", "ELIZABETH", "PATRICIA", "MARGARET", "KATHLEEN", "STEPHEN",
	"JONATHAN", "NICHOLAS", "MATTHEW", "ANTHONY", "TIMOTHY", "GREGORY",
	"RAYMOND", "DOUGLAS", "KENNETH", "EDWARD", "THOMAS", "JOSEPH", "DANIEL",
	"DONALD", "GEORGE", "STEVEN", "ANDREW", "JEFFREY", "BARBARA", "SUSAN",
	"JESSICA", "SARAH", "KAREN", "NANCY", "LINDA", "LAURA", "JAMES", "JOHN",
	"DAVID", "FRANK", "SCOTT", "BRIAN", "KEVIN", "JASON", "PETER", "HENRY",
	"MARK", "PAUL", "GARY", "ERIC", "MARY", "LISA", "ANNA", "RUTH", "AMY",
	"JOE", "BOB", "JIM", "TOM", "SAM", "DAN", "BEN", "TED",
}

func DefaultNameSplitter() *NameSplitter {
	return &NameSplitter{prefixes: commonFirstNames}
}

func NewNameSplitter(prefixes []string) *NameSplitter {
	return &NameSplitter{prefixes: prefixes}
}

// Split inserts a space after a recognized leading first name when the input
// has no spaces and the remainder is at least 3 characters. Anything else is
// returned untouched.
func (s *NameSplitter) Split(name string) string {
	if strings.Contains(name, " ") {
		return name
	}
	for _, prefix := range s.prefixes {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		if len(rest) >= 3 {
			return prefix + " " + rest
		}
	}
	return name
}

// nicknamePairs maps nicknames to their canonical form. Applied token by
// token after splitting, in fixed order.
var nicknamePairs = [][2]string{
	{"BOBBY", "ROBERT"},
	{"BOB", "ROBERT"},
	{"ROB", "ROBERT"},
	{"BILLY", "WILLIAM"},
	{"BILL", "WILLIAM"},
	{"WILL", "WILLIAM"},
	{"DICK", "RICHARD"},
	{"RICK", "RICHARD"},
	{"JIMMY", "JAMES"},
	{"JIM", "JAMES"},
	{"MIKE", "MICHAEL"},
	{"CHRIS", "CHRISTOPHER"},
	{"CHUCK", "CHARLES"},
	{"TONY", "ANTHONY"},
	{"STEVE", "STEVEN"},
	{"DAVE", "DAVID"},
	{"DANNY", "DANIEL"},
	{"DAN", "DANIEL"},
	{"TOMMY", "THOMAS"},
	{"TOM", "THOMAS"},
	{"JOEY", "JOSEPH"},
	{"JOE", "JOSEPH"},
	{"JOHNNY", "JOHN"},
	{"JACK", "JOHN"},
	{"TED", "EDWARD"},
	{"ED", "EDWARD"},
	{"KEN", "KENNETH"},
	{"JEFF", "JEFFREY"},
	{"GREG", "GREGORY"},
	{"TIM", "TIMOTHY"},
	{"NICK", "NICHOLAS"},
	{"MATT", "MATTHEW"},
	{"BETH", "ELIZABETH"},
	{"LIZ", "ELIZABETH"},
	{"PEGGY", "MARGARET"},
	{"KATHY", "KATHLEEN"},
	{"PAT", "PATRICIA"},
	{"JEN", "JENNIFER"},
	{"SUE", "SUSAN"},
}

func applyNicknames(name string) string {
	tokens := strings.Split(name, " ")
	for i, tok := range tokens {
		for _, p := range nicknamePairs {
			if tok == p[0] {
				tokens[i] = p[1]
				break
			}
		}
	}
	return strings.Join(tokens, " ")
}
