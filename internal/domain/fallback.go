package domain

// fallbackQuestions is the offline set used whenever the question provider
// cannot deliver a playable set.
var fallbackQuestions = []Question{
	{
		ID:                 "f1",
		Text:               "Which city is known as the 'Red City' of Morocco?",
		Options:            []string{"Casablanca", "Marrakech", "Fes", "Tangier"},
		CorrectAnswerIndex: 1,
		Category:           CategoryGeography,
		Fact:               "Marrakech is called the Red City because of its red sandstone walls and buildings.",
	},
	{
		ID:                 "f2",
		Text:               "What is the traditional Moroccan mint tea often affectionately called?",
		Options:            []string{"Berber Whiskey", "Desert Water", "Atlas Nectar", "Sultan's Drink"},
		CorrectAnswerIndex: 0,
		Category:           CategoryFood,
		Fact:               "Mint tea is central to social life and is jokingly referred to as 'Berber Whiskey'.",
	},
	{
		ID:                 "f3",
		Text:               "Which musical instrument is essential to Gnawa music?",
		Options:            []string{"Oud", "Guembri", "Qanun", "Violin"},
		CorrectAnswerIndex: 1,
		Category:           CategoryMusic,
		Fact:               "The Guembri is a three-stringed bass lute used by the Maalem (master) in Gnawa music.",
	},
	{
		ID:                 "f4",
		Text:               "What is the name of the traditional Moroccan pointed slipper?",
		Options:            []string{"Jellaba", "Caftan", "Babouche", "Tarboush"},
		CorrectAnswerIndex: 2,
		Category:           CategoryTraditions,
		Fact:               "Babouches are traditional leather slippers, often yellow for men and embroidered for women.",
	},
	{
		ID:                 "f5",
		Text:               "In which year did Morocco gain independence from France?",
		Options:            []string{"1944", "1956", "1962", "1975"},
		CorrectAnswerIndex: 1,
		Category:           CategoryHistory,
		Fact:               "Morocco officially gained independence on March 2, 1956, ending the French protectorate.",
	},
}

// FallbackQuestions returns a copy of the embedded offline question set.
func FallbackQuestions() []Question {
	out := make([]Question, len(fallbackQuestions))
	for i, q := range fallbackQuestions {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

// DefaultTeams is the roster a new match starts with.
func DefaultTeams() []Team {
	return []Team{
		{ID: "1", Name: "Atlas Lions", Members: "Mixed"},
		{ID: "2", Name: "Sahara Stars", Members: "Mixed"},
	}
}
