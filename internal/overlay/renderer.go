package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/dealwatch/internal/telemetry"
)

// Renderer performs the actual page mutation for a render command.
type Renderer interface {
	// Placeholder injects the overlay skeleton for an app while data loads.
	Placeholder(ctx context.Context, appID string) error
	// Render delivers the full command to the page.
	Render(ctx context.Context, cmd RenderCommand) error
}

// Evaluator executes a script expression in the tracked page. The session's
// control channel satisfies this.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string) error
}

// ChannelRenderer translates render commands into script evaluated over the
// control channel. The page-side bootstrap owns all DOM work; this side only
// ships data.
type ChannelRenderer struct {
	eval   Evaluator
	logger *log.Logger
}

func NewChannelRenderer(eval Evaluator) *ChannelRenderer {
	return &ChannelRenderer{eval: eval, logger: telemetry.Logger("OVERLAY")}
}

func (r *ChannelRenderer) Placeholder(ctx context.Context, appID string) error {
	id, err := json.Marshal(appID)
	if err != nil {
		return err
	}
	return r.eval.Evaluate(ctx, fmt.Sprintf("%s;window.__dealwatch.placeholder(%s);", bootstrapJS, id))
}

func (r *ChannelRenderer) Render(ctx context.Context, cmd RenderCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshalling render command: %w", err)
	}
	r.logger.Printf("render app=%s series=%d prediction=%v err=%q", cmd.AppID, len(cmd.Series), cmd.Prediction != nil, cmd.Error)
	return r.eval.Evaluate(ctx, fmt.Sprintf("%s;window.__dealwatch.render(%s);", bootstrapJS, payload))
}

// bootstrapJS installs the page-side hook once per page. Safe to evaluate
// repeatedly: re-injection replaces any existing box for the same app.
const bootstrapJS = `(function(){
 if (window.__dealwatch) return;
 var dw = window.__dealwatch = {};
 var boxId = function(id){ return 'dealwatch-box-' + id; };
 var ensureBox = function(id){
  var old = document.getElementById(boxId(id));
  if (old) old.remove();
  var box = document.createElement('div');
  box.id = boxId(id);
  box.className = 'game_area_purchase_game_wrapper dealwatch-injected';
  var anchor = document.querySelector('.game_area_purchase') || document.querySelector('.game_area_description');
  if (anchor && anchor.parentNode) anchor.parentNode.insertBefore(box, anchor);
  return box;
 };
 dw.placeholder = function(id){
  var box = ensureBox(id);
  box.textContent = 'Loading price history...';
 };
 dw.render = function(cmd){
  var box = ensureBox(cmd.app_id);
  if (cmd.error){ box.textContent = 'Price data unavailable'; return; }
  var fmt = function(v){ return v.toFixed(2) + ' ' + cmd.currency; };
  var parts = [];
  if (cmd.free_game){ parts.push('Free to play'); }
  else {
   parts.push('Current: ' + fmt(cmd.current_price) + ' (' + cmd.current_store + ')');
   if (cmd.lowest) parts.push('Lowest (' + cmd.history_range + '): ' + fmt(cmd.lowest.amount) + ' (' + cmd.lowest.store + ')');
  }
  if (cmd.prediction) parts.push('Next sale around ' + new Date(cmd.prediction.date).toLocaleDateString());
  box.textContent = parts.join(' | ');
  if (cmd.show_quick_links){
   var links = document.createElement('div');
   var a = document.createElement('a'); a.href = cmd.links.steamdb; a.textContent = 'SteamDB';
   var b = document.createElement('a'); b.href = cmd.links.itad; b.textContent = 'IsThereAnyDeal';
   links.appendChild(a); links.appendChild(b); box.appendChild(links);
  }
 };
})()`
