package prompt

// DefaultCandidates is the fixed challenge set a daily prompt is drawn from.
var DefaultCandidates = []string{
	"Take a photo of the weirdest vending machine you encounter today",
	"Find and document a unique Japanese convenience store item",
	"Capture the most crowded train station you visit",
	"Photograph a traditional Japanese architectural element",
	"Find and document a local street food vendor",
	"Take a picture of an interesting public transportation sign",
	"Capture a moment of Japanese work culture",
	"Document a unique Japanese technology or automation",
	"Find and photograph a hidden shrine or temple",
	"Capture a moment of Japanese pop culture",
}
