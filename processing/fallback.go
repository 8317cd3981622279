package processing

import "fmt"

// FallbackScript builds the offline script used whenever the text model cannot
// produce a valid one. It always has exactly req.SlideCount slides: a hook, the
// core-content slides and a summary.
func FallbackScript(req GenerationRequest) VideoScript {
	n := req.SlideCount
	if n < MinSlideCount {
		n = MinSlideCount
	}
	if n > MaxSlideCount {
		n = MaxSlideCount
	}

	slides := make([]SlideScript, 0, n)
	slides = append(slides, SlideScript{
		Title:       "Welcome!",
		Narration:   fmt.Sprintf("Hello! Today we're going to learn about %s. This is an exciting topic in biology that affects our everyday lives.", req.Topic),
		ImagePrompt: fmt.Sprintf("Educational illustration showing the concept of %s, colorful and engaging for students", req.Topic),
		KeyPoints:   []string{"What we'll learn today", fmt.Sprintf("Why %s matters", req.Topic)},
	})

	core := coreFallbackSlides(req)
	for i := 0; i < n-2; i++ {
		slide := core[i%len(core)]
		if i >= len(core) {
			slide.Title = fmt.Sprintf("%s (Part %d)", slide.Title, i/len(core)+1)
		}
		slides = append(slides, slide)
	}

	slides = append(slides, SlideScript{
		Title:       "Let's Review!",
		Narration:   fmt.Sprintf("Great job! Today we learned about %s. Remember the key points and look for examples in your daily life. Keep exploring!", req.Topic),
		ImagePrompt: fmt.Sprintf("Colorful summary graphic with icons representing key concepts of %s", req.Topic),
		KeyPoints:   []string{"Key takeaways", "Keep learning!"},
	})

	for i := range slides {
		slides[i].Index = i + 1
	}

	return VideoScript{
		Title:  fmt.Sprintf("Introduction to %s", req.Topic),
		Slides: slides,
	}
}

func coreFallbackSlides(req GenerationRequest) []SlideScript {
	return []SlideScript{
		{
			Title:       fmt.Sprintf("What is %s?", req.Topic),
			Narration:   fmt.Sprintf("Let's start with the basics. %s is an important concept in biology that scientists have studied for many years.", req.Topic),
			ImagePrompt: fmt.Sprintf("Scientific diagram explaining %s, labeled and clear for grade %s students", req.Topic, req.GradeBand),
			KeyPoints:   []string{"Definition", "Key characteristics"},
		},
		{
			Title:       "Real World Examples",
			Narration:   fmt.Sprintf("You can see examples of %s all around you, especially in %s. Look for these patterns in nature!", req.Topic, req.Region),
			ImagePrompt: fmt.Sprintf("Photo-realistic image showing %s in nature in %s, educational style", req.Topic, req.Region),
			KeyPoints:   []string{fmt.Sprintf("Examples in %s", req.Region), "Everyday observations"},
		},
		{
			Title:       "Why It Matters",
			Narration:   fmt.Sprintf("Understanding %s helps us appreciate the natural world and make better decisions for our environment.", req.Topic),
			ImagePrompt: fmt.Sprintf("Illustration showing the importance of %s to ecosystems and human life", req.Topic),
			KeyPoints:   []string{"Environmental impact", "Human connection"},
		},
		{
			Title:       "How Scientists Study It",
			Narration:   fmt.Sprintf("Scientists learn about %s by observing, asking questions and running careful experiments. You can do the same with simple tools.", req.Topic),
			ImagePrompt: fmt.Sprintf("Students in %s observing %s with simple classroom tools, bright illustration", req.Region, req.Topic),
			KeyPoints:   []string{"Observation", "Simple experiments"},
		},
		{
			Title:       "Common Mix-ups",
			Narration:   fmt.Sprintf("Many people have mistaken ideas about %s. Asking good questions helps us check what is really true.", req.Topic),
			ImagePrompt: fmt.Sprintf("Friendly illustration contrasting a myth and a fact about %s for students", req.Topic),
			KeyPoints:   []string{"A common myth", "What science shows"},
		},
		{
			Title:       "Try It Yourself",
			Narration:   fmt.Sprintf("Here is a challenge: find one example of %s near your home or school and describe it to a friend.", req.Topic),
			ImagePrompt: fmt.Sprintf("Student exploring the outdoors in %s with a notebook, looking for examples of %s", req.Region, req.Topic),
			KeyPoints:   []string{"Observe", "Describe", "Share"},
		},
	}
}
