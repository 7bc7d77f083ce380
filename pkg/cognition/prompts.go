package cognition

import (
	"fmt"
	"strings"

	"github.com/simulacra-labs/simulacra-go/pkg/memory"
	"github.com/simulacra-labs/simulacra-go/pkg/persona"
)

// statements renders retrieved nodes one embedding key per line, the form in
// which memories are fed back into generation prompts.
func statements(nodes []*memory.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(n.EmbeddingKey)
		b.WriteByte('\n')
	}
	return b.String()
}

// flattenRetrieved collects the nodes of every focal point in a retrieval
// result, preserving per-focal-point order.
func flattenRetrieved(retrieved map[string][]*memory.Node, focalPoints []string) []*memory.Node {
	var out []*memory.Node
	for _, fp := range focalPoints {
		out = append(out, retrieved[fp]...)
	}
	return out
}

// renderTranscript formats [speaker, utterance] pairs as "speaker: utterance"
// lines.
func renderTranscript(lines []memory.DialogueLine) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.Speaker)
		b.WriteString(": ")
		b.WriteString(l.Utterance)
		b.WriteByte('\n')
	}
	return b.String()
}

// ConversationPreamble composes the situational context string for a
// conversation between two personas: what the initiator was doing, what it
// saw the other doing, and that it is initiating the conversation.
func ConversationPreamble(init, target *persona.Persona) string {
	return fmt.Sprintf("%s was %s when %s saw %s in the middle of %s.\n%s is initiating a conversation with %s.",
		init.Name, init.CurrentAction,
		init.Name, target.Name, target.CurrentAction,
		init.Name, target.Name)
}

func relationshipPrompt(viewer, subject *persona.Persona, stmts string) string {
	return fmt.Sprintf(`[Statements]
%s
Based on the statements above, summarize %s's feelings toward and relationship with %s in one or two sentences of prose.`,
		stmts, viewer.Name, subject.Name)
}

func ideasPrompt(viewer *persona.Persona, stmts, currContext string) string {
	return fmt.Sprintf(`[Statements]
%s
Current context: %s

Summarize the most relevant ideas from %s's statements above with respect to the current context, in two or three sentences.`,
		stmts, currContext, viewer.Name)
}

func synthesizeIdeasPrompt(p *persona.Persona, stmts, question string) string {
	return fmt.Sprintf(`[Statements]
%s
Based on the statements above, what might %s say about the following? %s
Answer in two or three sentences.`,
		stmts, p.Name, question)
}

func utterancePrompt(speaker, listener *persona.Persona, stmts, currContext string, transcript []memory.DialogueLine) string {
	convo := renderTranscript(transcript)
	if convo == "" {
		convo = "(the conversation has not started yet)\n"
	}
	return fmt.Sprintf(`Context for the task:

About %s:
%s
%s is currently %s at %s.

Relevant memories of %s:
%s
Situation:
%s

Conversation so far:
%s
Task: produce %s's next line in this conversation with %s, and decide whether the conversation should come to an end after that line.

Respond with JSON only: {"utterance": "<what %s says next>", "end": <true or false>}`,
		speaker.Name, speaker.Identity,
		speaker.Name, speaker.CurrentAction, speaker.CurrentLocation,
		speaker.Name, stmts,
		currContext,
		convo,
		speaker.Name, listener.Name,
		speaker.Name)
}

func fullConversationPrompt(init, target *persona.Persona, currContext, initIdeas, targetIdeas string) string {
	return fmt.Sprintf(`Situation:
%s

About %s: %s
%s's thoughts going in: %s

About %s: %s
%s's thoughts going in: %s

Write the full conversation between %s and %s, roughly 4 to 8 exchanges, staying in character for both.

Respond with JSON only: an array of [speaker, utterance] pairs, e.g. [["%s", "..."], ["%s", "..."]]`,
		currContext,
		init.Name, init.Identity, init.Name, initIdeas,
		target.Name, target.Identity, target.Name, targetIdeas,
		init.Name, target.Name,
		init.Name, target.Name)
}

func innerThoughtPrompt(p *persona.Persona, whisper string) string {
	return fmt.Sprintf(`Translate the following into a first-person inner thought of %s.

Whisper: %s

Respond with the inner thought as a single sentence, e.g. "%s is thinking that ..."`,
		p.Name, whisper, p.Name)
}

func triplePrompt(p *persona.Persona, description string) string {
	return fmt.Sprintf(`Turn the following description into a (subject, predicate, object) triple about %s.

Description: %s

Respond with JSON only: {"subject": "...", "predicate": "...", "object": "..."}`,
		p.Name, description)
}

func eventPoignancyPrompt(p *persona.Persona, description string) string {
	return fmt.Sprintf(`On a scale of 1 to 10, where 1 is purely mundane (brushing teeth, making the bed) and 10 is extremely poignant (a breakup, college acceptance), rate the likely poignancy of the following event for %s.

Event: %s

Respond with JSON only: {"score": <1-10>}`,
		p.Name, description)
}

func chatPoignancyPrompt(p *persona.Persona, description string) string {
	return fmt.Sprintf(`On a scale of 1 to 10, where 1 is small talk (routine greetings) and 10 is extremely poignant (a conversation about a breakup, a confession), rate the likely poignancy of the following conversation for %s.

Conversation: %s

Respond with JSON only: {"score": <1-10>}`,
		p.Name, description)
}

func safetyPrompt(line string) string {
	return fmt.Sprintf(`Rate how problematic the following user message is on a scale of 1 to 10, where 1 is entirely benign and 10 is clearly abusive or unsafe.

Message: %s

Respond with JSON only: {"score": <1-10>}`, line)
}

func nextLinePrompt(p *persona.Persona, interlocutor string, convo []memory.DialogueLine, idea string) string {
	return fmt.Sprintf(`About %s:
%s

%s's relevant thoughts: %s

Conversation between %s and %s so far:
%s
Produce %s's next reply. Respond with the reply text only.`,
		p.Name, p.Identity,
		p.Name, idea,
		p.Name, interlocutor,
		renderTranscript(convo),
		p.Name)
}
