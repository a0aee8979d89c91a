package prompt

// DefaultRules cover numbered selection menus and [y/n] confirmations.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "numbered-yes",
			PromptMarkers: []string{
				`re:^[\s│|]*(?:❯|›|>)?\s*1[.)]\s*yes\b`,
			},
			ContextMarkers: []string{
				`re:\?\s*[│|]?\s*$`,
				"do you want to",
				"would you like to",
			},
			Window:   DefaultWindow,
			Response: "1",
			Confirm:  true,
		},
		{
			Name: "yes-no",
			PromptMarkers: []string{
				`re:[\[(]\s*y(?:es)?\s*/\s*n(?:o)?\s*[\])]`,
			},
			ContextMarkers: []string{
				`re:\b(?:bash|command|execute|run|proceed|continue|overwrite|install|delete)\b`,
			},
			Window:   3,
			Response: "y",
			Confirm:  true,
		},
	}
}

// DefaultExclusions suppress the user's own typed input and editor hint
// banners.
func DefaultExclusions() []string {
	return []string{
		`re:^[\s│|]*>\s*1\s*[│|]?\s*$`,
		"press up to edit queued messages",
	}
}

func DefaultOptions() Options {
	return Options{
		Rules:         DefaultRules(),
		Exclusions:    DefaultExclusions(),
		ScanTailLines: 20,
	}
}
