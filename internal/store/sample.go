package store

import "github.com/quizmania/stage/internal/domain"

// seedSampleData fills a fresh document with a demo roster and question
// banks so a first run has something to show. Callers must hold s.mu.
func (s *Store) seedSampleData() {
	doc := domain.NewDocument()

	doc.Teams = []domain.Team{
		{ID: 1, Name: "Team Alpha", Members: "John, Jane", Color: "#FF6B6B"},
		{ID: 2, Name: "Team Beta", Members: "Mike, Sarah", Color: "#4ECDC4"},
		{ID: 3, Name: "Team Gamma", Members: "Alex, Emma", Color: "#45B7D1"},
		{ID: 4, Name: "Team Delta", Members: "Chris, Lisa", Color: "#FFA07A"},
	}

	doc.Questions[domain.RoundGeneral1] = []domain.Question{
		{ID: 1, Text: "What is the capital of France?", Answer: "Paris", Points: 10, Type: domain.QuestionText},
		{ID: 2, Text: `Who wrote "Romeo and Juliet"?`, Answer: "William Shakespeare", Points: 10, Type: domain.QuestionText},
	}

	doc.Questions[domain.RoundRapid] = []domain.Question{
		{ID: 1, Text: "What is 7 × 8?", Answer: "56", Points: 10, Type: domain.QuestionText},
		{ID: 2, Text: "Name the smallest planet in our solar system.", Answer: "Mercury", Points: 10, Type: domain.QuestionText},
		{ID: 3, Text: "How many continents are there?", Answer: "7", Points: 10, Type: domain.QuestionText},
		{ID: 4, Text: "What is the chemical symbol for Gold?", Answer: "Au", Points: 10, Type: domain.QuestionText},
		{ID: 5, Text: "Who painted the Mona Lisa?", Answer: "Leonardo da Vinci", Points: 10, Type: domain.QuestionText},
		{ID: 6, Text: "What is the largest ocean on Earth?", Answer: "Pacific Ocean", Points: 10, Type: domain.QuestionText},
		{ID: 7, Text: "In which year did the Titanic sink?", Answer: "1912", Points: 10, Type: domain.QuestionText},
		{ID: 8, Text: "How many bones are in the human body?", Answer: "206", Points: 10, Type: domain.QuestionText},
		{ID: 9, Text: "What is the hardest natural substance on Earth?", Answer: "Diamond", Points: 10, Type: domain.QuestionText},
		{ID: 10, Text: "Who was the first President of the United States?", Answer: "George Washington", Points: 10, Type: domain.QuestionText},
	}

	doc.RapidFireSettings = domain.RapidFireSettings{
		TotalTime:     90,
		QuestionCount: 10,
	}

	s.doc = doc
}
