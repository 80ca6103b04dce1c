package rod

const (
	BasicHTML = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
	<h1>Hello World</h1>
</body>
</html>`

	FormHTML = `<!DOCTYPE html>
<html>
<head><title>Search</title></head>
<body>
	<input id="q" type="text" name="q" />
	<div id="events"></div>
	<script>
		const log = (name) => { document.getElementById('events').textContent += name + ';'; };
		document.body.addEventListener('input', () => log('input'));
		document.body.addEventListener('change', () => log('change'));
	</script>
</body>
</html>`

	InteractiveHTML = `<!DOCTYPE html>
<html>
<body>
	<button class="go">Go</button>
	<div id="result"></div>
	<script>
		document.querySelector('.go').addEventListener('click', function() {
			document.getElementById('result').textContent = 'Clicked!';
		});
		document.addEventListener('keydown', function(e) {
			document.getElementById('result').textContent = e.key + '/' + e.code;
		});
	</script>
</body>
</html>`

	RouterHTML = `<!DOCTYPE html>
<html>
<body>
	<div id="route"></div>
	<script>
		window.addEventListener('popstate', function() {
			document.getElementById('route').textContent = location.pathname;
		});
	</script>
</body>
</html>`
)
