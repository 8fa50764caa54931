package browser

// Attributes written by annotateJS. The noise ruleset removes elements
// carrying either one.
const (
	HiddenAttr  = "data-sift-hidden"
	OverlayAttr = "data-sift-overlay"
)

// annotateJS marks elements the static markup cannot reveal as noise:
// anything computed as display:none or visibility:hidden, and fixed or
// sticky elements covering at least 90% of the viewport. Marks from a
// previous snapshot are cleared first since a click may have revealed
// them.
const annotateJS = `() => {
	for (const el of document.querySelectorAll('[data-sift-hidden],[data-sift-overlay]')) {
		el.removeAttribute('data-sift-hidden');
		el.removeAttribute('data-sift-overlay');
	}
	if (!document.body) return;
	const vw = window.innerWidth, vh = window.innerHeight;
	const area = vw * vh;
	for (const el of document.body.querySelectorAll('*')) {
		const st = window.getComputedStyle(el);
		if (st.display === 'none' || st.visibility === 'hidden') {
			el.setAttribute('data-sift-hidden', '1');
			continue;
		}
		if (st.position !== 'fixed' && st.position !== 'sticky') continue;
		const r = el.getBoundingClientRect();
		const w = Math.max(0, Math.min(r.right, vw) - Math.max(r.left, 0));
		const h = Math.max(0, Math.min(r.bottom, vh) - Math.max(r.top, 0));
		if (area > 0 && w * h >= 0.9 * area) {
			el.setAttribute('data-sift-overlay', '1');
		}
	}
}`

// heightJS returns the document scroll height.
const heightJS = `() => Math.max(
	document.documentElement ? document.documentElement.scrollHeight : 0,
	document.body ? document.body.scrollHeight : 0)`

// scrollJS jumps to the bottom of the document.
const scrollJS = `() => window.scrollTo(0, Math.max(
	document.documentElement ? document.documentElement.scrollHeight : 0,
	document.body ? document.body.scrollHeight : 0))`

// domSizeJS is the settle probe: the serialized length of the document.
const domSizeJS = `() => document.documentElement ? document.documentElement.outerHTML.length : 0`
