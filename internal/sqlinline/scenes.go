package sqlinline

const QUpsertFirstScene = `--sql a1018e63-c5d3-4b0d-a14f-ed24f9c0d93b
insert into first_scenes (
    portrait_id, build_type, narration, visual_scene, image_url, audio_url,
    choices, retry_count, last_error, is_successful, created_at, updated_at
)
values (
    $1::text, $2::text, $3::text, $4::text, nullif($5::text, ''), nullif($6::text, ''),
    $7::jsonb, $8::int, nullif($9::text, ''), $10::boolean, now(), now()
)
on conflict (portrait_id, build_type) do update set
    narration = excluded.narration,
    visual_scene = excluded.visual_scene,
    image_url = excluded.image_url,
    audio_url = excluded.audio_url,
    choices = excluded.choices,
    retry_count = excluded.retry_count,
    last_error = excluded.last_error,
    is_successful = excluded.is_successful,
    updated_at = now();
`

const QSelectSuccessfulFirstScene = `--sql 529d6c6e-36e8-4eeb-818f-6f74628934a8
select id::text, portrait_id, build_type, narration, visual_scene,
       coalesce(image_url, ''), coalesce(audio_url, ''), choices,
       retry_count, coalesce(last_error, ''), is_successful, created_at, updated_at
from first_scenes
where portrait_id = $1::text
  and build_type = $2::text
  and is_successful = true
limit 1;
`

const QExistsSuccessfulFirstScene = `--sql 9fd4ad24-91b5-43da-a71d-ee3899dfd031
select exists (
    select 1
    from first_scenes
    where portrait_id = $1::text
      and build_type = $2::text
      and is_successful = true
);
`

const QListFirstScenes = `--sql 99a88261-9460-4ab5-8a5d-0a579cfd9e52
select id::text, portrait_id, build_type, narration, visual_scene,
       coalesce(image_url, ''), coalesce(audio_url, ''), choices,
       retry_count, coalesce(last_error, ''), is_successful, created_at, updated_at
from first_scenes
order by portrait_id asc, build_type asc;
`

const QPing = `--sql 1f4c78de-d0ee-4cf1-a416-356baf49f726
select 1;
`
