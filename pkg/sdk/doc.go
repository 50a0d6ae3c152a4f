// Package questiongen runs the quiz generation pipeline in-process.
//
// A Client summarizes text into a short summary and topic set, synthesizes
// three multiple-choice questions from it and writes feedback for an assessed
// question. Any LLM backend can be plugged in through Completer; the built-in
// OpenAI, Gemini and Anthropic backends are selected with options.
//
//	client, _ := questiongen.New(ctx,
//	    questiongen.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "gpt-4"),
//	    questiongen.WithLanguage("English"),
//	)
//	defer client.Close()
//
//	quiz, _ := client.Generate(ctx, lectureNotes)
//	for _, q := range quiz.Questions {
//	    fmt.Println(q.Prompt, q.CorrectLabel)
//	}
//
// Token budgets persist across restarts when a Redis address is configured:
//
//	questiongen.WithRedis("localhost:6379", "")
//	questiongen.WithTokenBudget(200_000, 5_000_000, true)
package questiongen
