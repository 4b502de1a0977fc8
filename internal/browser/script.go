package browser

// clickBinding is the CDP binding name the page script calls with one JSON
// payload per intercepted click.
const clickBinding = "__stepguideClick"

// recorderScript is injected on every new document. It intercepts clicks at
// the capture phase, suppresses their default behavior, registers the
// clicked element under a token so later calls (highlight, re-dispatch) can
// find it, and reports the click through the binding. Synthetic clicks
// replayed by the recorder set the replaying flag and pass through
// untouched.
const recorderScript = `
(() => {
	if (window.__stepguideInstalled) return;
	window.__stepguideInstalled = true;
	window.__stepguideReplaying = false;
	window.__stepguideTargets = {};
	let next = 1;

	document.addEventListener('click', (ev) => {
		if (window.__stepguideReplaying) return;
		const el = ev.target;
		if (!(el instanceof Element)) return;

		ev.preventDefault();
		ev.stopImmediatePropagation();

		const token = String(next++);
		window.__stepguideTargets[token] = el;

		const childPath = [];
		let node = el;
		while (node.parentElement) {
			childPath.unshift(Array.prototype.indexOf.call(node.parentElement.children, node));
			node = node.parentElement;
		}

		window.` + clickBinding + `(JSON.stringify({
			token: token,
			childPath: childPath,
			clientX: ev.clientX,
			clientY: ev.clientY,
		}));
	}, true);
})();
`

// highlightScript paints the overlay over the registered element. The
// overlay is fixed-position and ignores pointer events so it can never
// become an interaction target itself. Styling matches the recorder's
// signature red outline.
const highlightScript = `
((token) => {
	const el = window.__stepguideTargets && window.__stepguideTargets[token];
	if (!el || !el.isConnected) return;
	const rect = el.getBoundingClientRect();
	let box = document.getElementById('__stepguide-highlight');
	if (!box) {
		box = document.createElement('div');
		box.id = '__stepguide-highlight';
		document.body.appendChild(box);
	}
	box.style.cssText =
		'position:fixed;pointer-events:none;z-index:2147483647;' +
		'border:3px solid #ff4444;border-radius:4px;' +
		'box-shadow:0 0 0 2px rgba(255,68,68,0.3);' +
		'left:' + (rect.left - 3) + 'px;top:' + (rect.top - 3) + 'px;' +
		'width:' + rect.width + 'px;height:' + rect.height + 'px;';
})(%q)
`

// removeHighlightScript tears the overlay down if it is still there.
const removeHighlightScript = `
(() => {
	const box = document.getElementById('__stepguide-highlight');
	if (box) box.remove();
})()
`

// redispatchScript replays the suppressed click on the registered element
// with the replaying flag up, then drops the element from the registry. A
// gone element is a no-op.
const redispatchScript = `
((token) => {
	const el = window.__stepguideTargets && window.__stepguideTargets[token];
	if (window.__stepguideTargets) delete window.__stepguideTargets[token];
	if (!el || !el.isConnected) return;
	window.__stepguideReplaying = true;
	try {
		el.dispatchEvent(new MouseEvent('click', {bubbles: true, cancelable: true, view: window}));
	} finally {
		window.__stepguideReplaying = false;
	}
})(%q)
`
