package portal

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
<title>linkkeeper setup</title>
<style>
body{font-family:sans-serif;margin:1.5em;max-width:28em}
label{display:block;margin:.5em 0}
input{width:100%}
pre{background:#f4f4f4;padding:.6em}
</style>
</head>
<body>
<h1>Network setup</h1>
<form method="post" action="/connect">
<label>Network name <input name="ssid" required></label>
<label>Password <input name="pass" type="password"></label>
<button type="submit">Connect</button>
</form>
<h2>Setup access point</h2>
<form method="post" action="/apconfig">
<label>Name <input name="ssid" required></label>
<label>Password (empty or at least 8 characters) <input name="pass" type="password"></label>
<button type="submit">Save</button>
</form>
<h2>Status</h2>
<pre id="status"></pre>
<script>
fetch("/status").then(r => r.json()).then(s => document.getElementById("status").textContent = JSON.stringify(s, null, 2));
</script>
</body>
</html>
`
