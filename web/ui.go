package web

import (
	"html"
	"strconv"

	"github.com/rohanthewiz/element"
	"github.com/rohanthewiz/rweb"

	"rnotes/db"
	"rnotes/diff"
	"rnotes/notes"
)

// rootHandler serves the note list
func rootHandler(c rweb.Context) error {
	list, err := noteService.List()
	if err != nil {
		return writeServiceError(c, err, "failed to list notes")
	}
	return c.WriteHTML(generateIndexUI(list))
}

// reviewPageHandler serves the line view of a note, opening a review if none is active.
func reviewPageHandler(c rweb.Context) error {
	noteID := c.Request().Param("id")

	note, err := noteService.Get(noteID)
	if err != nil {
		return writeServiceError(c, err, "failed to load note")
	}

	view, err := noteService.Review(noteID)
	if err != nil {
		if view, err = noteService.StartReview(noteID); err != nil {
			return writeServiceError(c, err, "failed to start review")
		}
	}

	return c.WriteHTML(generateReviewUI(note, view))
}

func generateIndexUI(list []*db.Note) string {
	b := element.NewBuilder()

	b.Html().R(
		b.Head().R(
			b.Title().T("RNotes"),
			b.Meta("charset", "UTF-8"),
			b.Meta("name", "viewport", "content", "width=device-width, initial-scale=1.0"),
			b.Style().T(generateCSS()),
		),
		b.Body().R(
			b.Div("id", "app").R(
				b.Header().R(
					b.Div("class", "header-content").R(
						b.H1().T("RNotes"),
						b.Button("id", "new-note-btn", "class", "btn-primary", "onclick", "createNote()").T("New Note"),
					),
				),
				b.Main().R(
					func() any {
						if len(list) == 0 {
							b.Div("class", "empty-state").T("No notes yet")
							return nil
						}
						b.Div("class", "note-list").R(
							element.ForEach(list, func(note *db.Note) {
								b.Div("class", "note-item", "data-note-id", note.ID,
									"onclick", "window.location.href='/notes/"+note.ID+"/review'").R(
									b.Span("class", "note-title").T(html.EscapeString(note.Title)),
									b.Span("class", "note-date").T(note.UpdatedAt.Format("Jan 2, 15:04")),
								)
							}),
						)
						return nil
					}(),
				),
			),
			b.Script().T(indexJS),
		),
	)

	return b.String()
}

func generateReviewUI(note *db.Note, view notes.ReviewView) string {
	b := element.NewBuilder()
	lines := diff.SplitLines(view.ModifiedText)
	changed := diff.NewLineSet(view.ChangedLines...)

	b.Html().R(
		b.Head().R(
			b.Title().T(html.EscapeString(note.Title)+" - RNotes"),
			b.Meta("charset", "UTF-8"),
			b.Meta("name", "viewport", "content", "width=device-width, initial-scale=1.0"),
			b.Style().T(generateCSS()),
		),
		b.Body("data-note-id", note.ID).R(
			b.Div("id", "app").R(
				b.Header().R(
					b.Div("class", "header-content").R(
						b.Button("class", "btn-secondary", "onclick", "window.location.href='/'").T("Notes"),
						b.H1().T(html.EscapeString(note.Title)),
						b.Span("id", "review-state", "class", "state state-"+string(view.State)).T(string(view.State)),
					),
				),
				b.Main("class", "review").R(
					b.Section("class", "editor").R(
						b.TextArea("id", "note-text", "rows", "20", "spellcheck", "false").T(html.EscapeString(view.ModifiedText)),
						b.Div("class", "review-controls").R(
							b.Input("type", "text", "id", "instruction", "placeholder", "Instruction for the AI (optional)"),
							b.Button("id", "transform-btn", "class", "btn-secondary").T("Transform"),
							b.Button(buttonAttrs("accept-btn", "btn-primary", !view.HasPendingChanges)...).T("Accept"),
							b.Button(buttonAttrs("reject-btn", "btn-secondary", !view.HasPendingChanges)...).T("Reject"),
						),
					),
					b.Section("class", "line-view").R(
						b.Div("id", "lines", "class", "lines").R(
							element.ForEach(lineEntries(lines, changed), func(entry lineEntry) {
								b.Div(entry.attrs()...).T(html.EscapeString(entry.text))
							}),
						),
						b.Div("id", "suggestions", "class", "suggestions").R(
							element.ForEach(view.Suggestions, func(s string) {
								b.Div("class", "suggestion").T(html.EscapeString(s))
							}),
						),
					),
				),
			),
			b.Script().T(reviewJS),
		),
	)

	return b.String()
}

type lineEntry struct {
	index   int
	text    string
	changed bool
}

func (e lineEntry) attrs() []string {
	class := "line"
	if e.changed {
		class += " changed"
	}
	return []string{"class", class, "data-line", strconv.Itoa(e.index)}
}

func lineEntries(lines []string, changed diff.LineSet) []lineEntry {
	entries := make([]lineEntry, len(lines))
	for i, line := range lines {
		entries[i] = lineEntry{index: i, text: line, changed: changed.Has(i)}
	}
	return entries
}

func buttonAttrs(id, class string, disabled bool) []string {
	attrs := []string{"id", id, "class", class}
	if disabled {
		attrs = append(attrs, "disabled", "disabled")
	}
	return attrs
}

func generateCSS() string {
	return `
		:root {
			--bg-primary: #1a1a1a;
			--bg-secondary: #2a2a2a;
			--text-primary: #ffffff;
			--text-secondary: #b0b0b0;
			--accent: #4a9eff;
			--border: #404040;
			--changed: rgba(74, 158, 255, 0.15);
		}

		* { margin: 0; padding: 0; box-sizing: border-box; }

		body {
			font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
			background: var(--bg-primary);
			color: var(--text-primary);
		}

		header { padding: 1rem; border-bottom: 1px solid var(--border); }
		.header-content { display: flex; align-items: center; gap: 1rem; }
		main { padding: 1rem; }

		.btn-primary, .btn-secondary {
			padding: 0.4rem 0.9rem; border-radius: 4px; border: 1px solid var(--border); cursor: pointer;
		}
		.btn-primary { background: var(--accent); color: #fff; }
		.btn-secondary { background: var(--bg-secondary); color: var(--text-primary); }
		button:disabled { opacity: 0.4; cursor: default; }

		.note-item { display: flex; justify-content: space-between; padding: 0.5rem 0; border-bottom: 1px solid var(--border); cursor: pointer; }
		.note-title { color: var(--accent); }
		.note-date, .empty-state { color: var(--text-secondary); }

		.review { display: grid; grid-template-columns: 1fr 1fr; gap: 1rem; }
		#note-text {
			width: 100%; font-family: monospace; font-size: 14px;
			background: var(--bg-secondary); color: var(--text-primary); border: 1px solid var(--border); padding: 0.5rem;
		}
		.review-controls { display: flex; gap: 0.5rem; margin-top: 0.5rem; }
		#instruction { flex: 1; padding: 0.4rem; background: var(--bg-secondary); color: var(--text-primary); border: 1px solid var(--border); }

		.lines { font-family: monospace; font-size: 14px; counter-reset: line; }
		.line { white-space: pre-wrap; min-height: 1.2em; border-left: 3px solid transparent; padding-left: 0.5rem; }
		.line::before { counter-increment: line; content: counter(line); display: inline-block; width: 2.5rem; color: var(--text-secondary); }
		.line.changed { background: var(--changed); border-left-color: var(--accent); }

		.state { font-size: 0.8rem; padding: 0.2rem 0.5rem; border-radius: 3px; background: var(--bg-secondary); }
		.state-reviewing { background: var(--accent); }
		.suggestions { margin-top: 1rem; color: var(--text-secondary); }
		.suggestion::before { content: "• "; }
	`
}

const indexJS = `
async function createNote() {
	const content = prompt('Note text');
	if (content === null) return;
	const res = await fetch('/api/notes', {
		method: 'POST',
		headers: {'Content-Type': 'application/json'},
		body: JSON.stringify({content})
	});
	if (!res.ok) { alert('Failed to create note'); return; }
	const note = await res.json();
	window.location.href = '/notes/' + note.id + '/review';
}

const events = new EventSource('/events');
events.onmessage = (e) => {
	const evt = JSON.parse(e.data);
	if (evt.type === 'note_list_updated') window.location.reload();
};
`

const reviewJS = `
const noteId = document.body.dataset.noteId;
const api = '/api/notes/' + noteId + '/review';
const textArea = document.getElementById('note-text');
let editTimer = null;

function render(view) {
	const state = document.getElementById('review-state');
	state.textContent = view.state;
	state.className = 'state state-' + view.state;

	const changed = new Set(view.changedLines || []);
	const list = document.getElementById('lines');
	list.innerHTML = '';
	view.modifiedText.split('\n').forEach((line, i) => {
		const li = document.createElement('div');
		li.className = changed.has(i) ? 'line changed' : 'line';
		li.dataset.line = i;
		li.textContent = line;
		list.appendChild(li);
	});

	const suggestions = document.getElementById('suggestions');
	suggestions.innerHTML = '';
	(view.suggestions || []).forEach((s) => {
		const div = document.createElement('div');
		div.className = 'suggestion';
		div.textContent = s;
		suggestions.appendChild(div);
	});

	document.getElementById('accept-btn').disabled = !view.hasPendingChanges;
	document.getElementById('reject-btn').disabled = !view.hasPendingChanges;
}

async function call(method, url, body) {
	const res = await fetch(url, {
		method,
		headers: {'Content-Type': 'application/json'},
		body: body === undefined ? undefined : JSON.stringify(body)
	});
	if (!res.ok) { throw new Error(await res.text()); }
	return res.json();
}

textArea.addEventListener('input', () => {
	clearTimeout(editTimer);
	editTimer = setTimeout(async () => {
		render(await call('PUT', api, {text: textArea.value}));
	}, 250);
});

document.getElementById('transform-btn').addEventListener('click', async () => {
	try {
		const instruction = document.getElementById('instruction').value;
		const view = await call('POST', api + '/transform', {instruction});
		textArea.value = view.modifiedText;
		render(view);
	} catch (err) {
		alert('Transform failed: ' + err.message);
	}
});

document.getElementById('accept-btn').addEventListener('click', async () => {
	render(await call('POST', api + '/accept'));
});

document.getElementById('reject-btn').addEventListener('click', async () => {
	const view = await call('POST', api + '/reject');
	textArea.value = view.modifiedText;
	render(view);
});

const events = new EventSource('/events');
events.onmessage = async (e) => {
	const evt = JSON.parse(e.data);
	if (evt.noteId !== noteId || !evt.type.startsWith('review_')) return;
	render(await call('GET', api));
};
`
