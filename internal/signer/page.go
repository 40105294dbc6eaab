package signer

import "html/template"

// approvalPage is the minimal request/approve/callback exchange. Production
// deployments replace it with the wallet toolkit's bundled page; any page
// that posts the token and result to /callback works.
var approvalPage = template.Must(template.New("approval").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>ckb-pop signing request</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 3rem auto; }
pre { background: #f4f4f4; padding: 1rem; overflow-x: auto; }
button { font-size: 1rem; padding: .5rem 1.5rem; margin-right: 1rem; }
</style>
</head>
<body>
<h1>Signing request</h1>
<p>ckb-pop is asking your wallet to approve the request below.</p>
<pre id="request"></pre>
<button id="approve">Approve in wallet</button>
<button id="reject">Reject</button>
<p id="status"></p>
<script>
const sessionToken = {{.Token}};
const pendingRequest = {{.Request}};
document.getElementById("request").textContent = JSON.stringify(pendingRequest, null, 2);

async function finish(body) {
  body.token = sessionToken;
  const resp = await fetch("/callback", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify(body),
  });
  document.getElementById("status").textContent =
    resp.ok ? "Done. You can close this tab." : "Callback failed: " + resp.status;
}

document.getElementById("reject").addEventListener("click", () => finish({ rejected: true }));
document.getElementById("approve").addEventListener("click", async () => {
  try {
    const wallet = window.ckbWallet;
    if (!wallet) {
      await finish({ error: "no CKB wallet extension detected" });
      return;
    }
    if (pendingRequest.kind === "connect") {
      const address = await wallet.connect(pendingRequest.network);
      await finish({ address });
    } else if (pendingRequest.kind === "message") {
      const signature = await wallet.signMessage(pendingRequest.payload.message);
      await finish({ signature });
    } else {
      const signedTx = await wallet.signTransaction(pendingRequest.payload);
      await finish({ signedTx });
    }
  } catch (err) {
    await finish({ error: String(err) });
  }
});
</script>
</body>
</html>
`))
