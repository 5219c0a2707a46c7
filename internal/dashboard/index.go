package dashboard

import "net/http"

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>linkkeeper</title>
<style>
body{font-family:sans-serif;margin:2em;max-width:40em}
pre{background:#f4f4f4;padding:1em;overflow:auto}
label{display:block;margin:.4em 0}
</style>
</head>
<body>
<h1>linkkeeper</h1>
<h2>Status</h2>
<pre id="status">connecting...</pre>
<h2>Telemetry</h2>
<pre id="sample">waiting for samples...</pre>
<h2>Uplink</h2>
<form id="uplink">
<label>Server <input name="server"></label>
<label>Subject <input name="subject"></label>
<label>Client ID <input name="client_id"></label>
<label>Username <input name="username"></label>
<label>Password <input name="password" type="password"></label>
<button type="submit">Save</button>
</form>
<pre id="uplink-status"></pre>
<script>
const $ = (id) => document.getElementById(id);
const form = $("uplink");
fetch("/api/status").then(r => r.json()).then(s => $("status").textContent = JSON.stringify(s, null, 2));
fetch("/api/uplink/config").then(r => r.json()).then(c => {
  for (const k of Object.keys(c)) if (form.elements[k]) form.elements[k].value = c[k];
});
fetch("/api/uplink/status").then(r => r.json()).then(s => $("uplink-status").textContent = JSON.stringify(s, null, 2));
form.addEventListener("submit", (e) => {
  e.preventDefault();
  const body = Object.fromEntries(new FormData(form));
  fetch("/api/uplink/config", {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body)})
    .then(r => r.json()).then(s => $("uplink-status").textContent = JSON.stringify(s, null, 2));
});
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = (ev) => {
  const msg = JSON.parse(ev.data);
  if (msg.role && msg.last_error !== undefined) $("status").textContent = JSON.stringify(msg, null, 2);
  else $("sample").textContent = JSON.stringify(msg, null, 2);
};
ws.onclose = () => $("status").textContent += "\n(disconnected)";
</script>
</body>
</html>
`
