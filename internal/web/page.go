package web

import "html/template"

var page = template.Must(template.New("index").Parse(`
<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <title>PDF Merger</title>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>
    :root { --bg:#fff; --fg:#111; --muted:#666; --border:#eee; }
    * { box-sizing: border-box; }
    body { font-family: system-ui, -apple-system, Segoe UI, Roboto, sans-serif; margin: 24px; color: var(--fg); background: var(--bg); }
    h1 { margin: 0 0 16px 0; font-size: 22px; }
    h3 { margin: 0 0 8px 0; }
    .wrap { display: grid; grid-template-columns: 1fr 380px; gap: 24px; }
    .box { border: 1px solid var(--border); border-radius: 12px; padding: 12px; margin-bottom: 12px; }
    .drop { border: 2px dashed #ccc; border-radius: 12px; padding: 24px; text-align: center; color: var(--muted); }
    .drop.over { border-color: #111; color: var(--fg); }
    .rows { list-style: none; margin: 0; padding: 0; }
    .rows li { display: flex; gap: 8px; align-items: center; padding: 8px 4px; border-bottom: 1px solid var(--border); }
    .rows li .name { flex: 1; min-width: 0; word-break: break-all; font-weight: 600; font-size: 14px; }
    .placeholder { color: var(--muted); padding: 16px 4px; }
    .muted { color: var(--muted); font-size: 12px; }
    .notice { color: #a60; font-size: 13px; margin: 8px 0; }
    .err { color: #c00; }
    .row { display: flex; gap: 8px; align-items: center; }
    .btn { padding: 10px 14px; border: 0; background: #111; color: #fff; border-radius: 10px; cursor: pointer; }
    .btn:disabled { background: #999; cursor: default; }
    .sm { padding: 4px 8px; border: 1px solid #ddd; background: #fff; border-radius: 6px; cursor: pointer; }
    .sm:disabled { color: #bbb; cursor: default; }
    input[type="text"] { padding: 10px; border: 1px solid #ddd; border-radius: 8px; flex: 1; }
    .lib { max-height: 320px; overflow: auto; }
    .lib div { display: flex; gap: 6px; align-items: center; padding: 4px 0; font-size: 13px; }
    .lib span { flex: 1; min-width: 0; word-break: break-all; }
    iframe { width: 100%; height: 360px; border: 0; border-radius: 8px; }
    @media (max-width: 980px) { .wrap { grid-template-columns: 1fr; } }
  </style>
</head>
<body data-library="{{.Library}}" data-remote="{{.Remote}}">
  <h1>PDF Merger</h1>
  <div class="wrap">
    <div>
      <div class="box">
        <div id="drop" class="drop">
          Drop PDF files here or <input id="picker" type="file" multiple accept=".pdf,application/pdf">
        </div>
        {{if .Remote}}
        <div class="row" style="margin-top:10px;">
          <input id="url" type="text" placeholder="https://... (PDF or page linking to one)">
          <button id="addUrl" class="btn">Add</button>
        </div>
        {{end}}
        <div id="notice" class="notice"></div>
      </div>

      <div class="box">
        <h3>Files <span class="muted" id="count"></span></h3>
        <ul id="rows" class="rows"></ul>
      </div>
    </div>

    <div>
      <div class="box">
        <h3>Merge</h3>
        <button id="mergeBtn" class="btn">Merge PDFs</button>
        <div id="status" style="margin-top:10px;"></div>
      </div>

      {{if .Library}}
      <div class="box">
        <h3>Library</h3>
        <div id="lib" class="lib"></div>
      </div>
      <div class="box">
        <h3>Preview</h3>
        <iframe id="pv" src="" title="Preview"></iframe>
      </div>
      {{end}}
    </div>
  </div>

<script>
  const rowsEl = document.getElementById('rows');
  const countEl = document.getElementById('count');
  const noticeEl = document.getElementById('notice');
  const statusEl = document.getElementById('status');
  const mergeBtn = document.getElementById('mergeBtn');
  let poll = null;

  async function api(method, path, body) {
    const opts = {method, headers: {}};
    if (body instanceof FormData) {
      opts.body = body;
    } else if (body !== undefined) {
      opts.headers['Content-Type'] = 'application/json';
      opts.body = JSON.stringify(body);
    }
    const resp = await fetch(path, opts);
    const data = await resp.json().catch(() => ({error: resp.statusText}));
    if (!resp.ok) {
      let msg = data.error || 'request failed';
      if (data.file) msg += ' (' + data.file + ')';
      throw new Error(msg);
    }
    return data;
  }

  function button(label, enabled, onclick) {
    const b = document.createElement('button');
    b.className = 'sm';
    b.textContent = label;
    b.disabled = !enabled;
    b.addEventListener('click', onclick);
    return b;
  }

  function render(state) {
    const view = state.view || {empty: true};
    rowsEl.innerHTML = '';
    if (view.empty) {
      const li = document.createElement('li');
      li.className = 'placeholder';
      li.textContent = 'No files yet. Add some PDFs to get started.';
      rowsEl.appendChild(li);
      countEl.textContent = '';
    } else {
      view.rows.forEach(row => {
        const li = document.createElement('li');
        const name = document.createElement('span');
        name.className = 'name';
        name.textContent = row.name;
        const size = document.createElement('span');
        size.className = 'muted';
        size.textContent = row.size_label;
        li.append(name, size,
          button('↑', row.can_move_up, () => mutate('POST', '/api/files/' + row.position + '/up')),
          button('↓', row.can_move_down, () => mutate('POST', '/api/files/' + row.position + '/down')),
          button('Remove', true, () => mutate('DELETE', '/api/files/' + row.position)));
        rowsEl.appendChild(li);
      });
      countEl.textContent = view.rows.length + ' file(s)';
    }
    let notice = '';
    if (state.filtered) notice = state.filtered + ' non-PDF file(s) were filtered out.';
    if (state.skipped && state.skipped.length) notice += ' Skipped: ' + state.skipped.join(', ');
    noticeEl.textContent = notice;
    mergeBtn.disabled = !!state.merging;
  }

  async function mutate(method, path, body) {
    try {
      render(await api(method, path, body));
    } catch (e) {
      noticeEl.textContent = e.message;
    }
  }

  function upload(files) {
    const fd = new FormData();
    Array.from(files).forEach(f => fd.append('files', f, f.name));
    mutate('POST', '/api/files', fd);
  }

  document.getElementById('picker').addEventListener('change', e => { upload(e.target.files); e.target.value = ''; });
  const drop = document.getElementById('drop');
  drop.addEventListener('dragover', e => { e.preventDefault(); drop.classList.add('over'); });
  drop.addEventListener('dragleave', () => drop.classList.remove('over'));
  drop.addEventListener('drop', e => { e.preventDefault(); drop.classList.remove('over'); upload(e.dataTransfer.files); });

  if (document.body.dataset.remote === 'true') {
    document.getElementById('addUrl').addEventListener('click', () => {
      const el = document.getElementById('url');
      const u = el.value.trim();
      if (!u) return;
      el.value = '';
      mutate('POST', '/api/files/url', {urls: [u]});
    });
  }

  async function loadLibrary() {
    const lib = document.getElementById('lib');
    const data = await api('GET', '/api/library');
    lib.innerHTML = '';
    if (!data.items.length) { lib.textContent = 'No PDFs found.'; return; }
    data.items.forEach(it => {
      const d = document.createElement('div');
      const s = document.createElement('span');
      s.textContent = it.rel;
      d.append(s,
        button('Preview', true, () => { document.getElementById('pv').src = '/library/file?rel=' + encodeURIComponent(it.rel) + '#page=1&zoom=page-width'; }),
        button('Add', true, () => mutate('POST', '/api/files/library', {files: [it.rel]})));
      lib.appendChild(d);
    });
  }

  function startPolling() {
    poll = setInterval(async () => {
      try {
        const st = await api('GET', '/api/merge/status');
        const p = st.progress || {};
        if (st.merging && p.total) statusEl.textContent = 'Merging (' + p.current + '/' + p.total + '): ' + p.name;
      } catch (e) {}
    }, 400);
  }

  mergeBtn.addEventListener('click', async () => {
    mergeBtn.disabled = true;
    statusEl.textContent = 'Merging, please wait...';
    startPolling();
    try {
      const res = await api('POST', '/api/merge');
      const a = document.createElement('a');
      a.href = res.download;
      a.download = res.filename;
      document.body.appendChild(a);
      a.click();
      a.remove();
      statusEl.textContent = 'Done: ' + res.pages + ' page(s). Download started.';
    } catch (e) {
      statusEl.innerHTML = '';
      const span = document.createElement('span');
      span.className = 'err';
      span.textContent = 'Merge failed: ' + e.message;
      statusEl.appendChild(span);
    } finally {
      clearInterval(poll);
      mergeBtn.disabled = false;
    }
  });

  mutate('GET', '/api/files');
  if (document.body.dataset.library === 'true') loadLibrary();
</script>
</body>
</html>
`))
